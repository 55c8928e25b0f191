package app

import (
	"fmt"

	keysRepository "github.com/allisson/tenantvault/internal/keys/repository"
	keysUseCase "github.com/allisson/tenantvault/internal/keys/usecase"
)

// TenantKeyRepository returns the tenant key repository.
func (c *Container) TenantKeyRepository() (keysUseCase.TenantKeyRepository, error) {
	var err error
	c.tenantKeyRepoInit.Do(func() {
		c.tenantKeyRepo, err = c.initTenantKeyRepository()
		if err != nil {
			c.initErrors["tenantKeyRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["tenantKeyRepo"]; exists {
		return nil, storedErr
	}
	return c.tenantKeyRepo, nil
}

// KeyHierarchyUseCase returns the key hierarchy use case.
func (c *Container) KeyHierarchyUseCase() (keysUseCase.KeyHierarchyUseCase, error) {
	var err error
	c.keyHierarchyUseCaseInit.Do(func() {
		c.keyHierarchyUseCase, err = c.initKeyHierarchyUseCase()
		if err != nil {
			c.initErrors["keyHierarchyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHierarchyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyHierarchyUseCase, nil
}

func (c *Container) initTenantKeyRepository() (keysUseCase.TenantKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tenant key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return keysRepository.NewMySQLTenantKeyRepository(db), nil
	case "postgres":
		return keysRepository.NewPostgreSQLTenantKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initKeyHierarchyUseCase() (keysUseCase.KeyHierarchyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key hierarchy use case: %w", err)
	}

	keyRepo, err := c.TenantKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant key repository for key hierarchy use case: %w", err)
	}

	wrapping, err := c.WrappingKeyDeriver()
	if err != nil {
		return nil, fmt.Errorf("failed to get wrapping key deriver for key hierarchy use case: %w", err)
	}

	guard, err := c.Guard()
	if err != nil {
		return nil, fmt.Errorf("failed to get guard for key hierarchy use case: %w", err)
	}

	alg, err := c.DataKeyAlgorithm()
	if err != nil {
		return nil, fmt.Errorf("failed to get data key algorithm for key hierarchy use case: %w", err)
	}

	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for key hierarchy use case: %w", err)
	}

	baseUseCase := keysUseCase.NewKeyHierarchyUseCase(
		txManager,
		keyRepo,
		c.Codec(),
		wrapping,
		guard,
		alg,
		c.config.KeyActivationMaxRetries,
		security,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key hierarchy use case: %w", err)
		}
		return keysUseCase.NewKeyHierarchyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
