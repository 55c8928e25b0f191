package app

import (
	"fmt"

	auditRepository "github.com/allisson/tenantvault/internal/audit/repository"
	auditService "github.com/allisson/tenantvault/internal/audit/service"
	auditUseCase "github.com/allisson/tenantvault/internal/audit/usecase"
	vaultUseCase "github.com/allisson/tenantvault/internal/vault/usecase"
)

// auditOutboxRepository is written by the outbox sink and drained by the dispatcher.
type auditOutboxRepository interface {
	auditService.OutboxRepository
	auditUseCase.OutboxRepository
}

// AuditOutboxRepository returns the audit outbox repository.
func (c *Container) AuditOutboxRepository() (auditOutboxRepository, error) {
	var err error
	c.auditOutboxRepoInit.Do(func() {
		c.auditOutboxRepo, err = c.initAuditOutboxRepository()
		if err != nil {
			c.initErrors["auditOutboxRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditOutboxRepo"]; exists {
		return nil, storedErr
	}
	return c.auditOutboxRepo, nil
}

// AuditSink returns the sink receiving audit events from the envelope API.
func (c *Container) AuditSink() (vaultUseCase.AuditSink, error) {
	var err error
	c.auditSinkInit.Do(func() {
		c.auditSink, err = c.initAuditSink()
		if err != nil {
			c.initErrors["auditSink"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSink"]; exists {
		return nil, storedErr
	}
	return c.auditSink, nil
}

// AuditDispatcher returns the audit outbox dispatcher.
func (c *Container) AuditDispatcher() (*auditUseCase.Dispatcher, error) {
	var err error
	c.auditDispatcherInit.Do(func() {
		c.auditDispatcher, err = c.initAuditDispatcher()
		if err != nil {
			c.initErrors["auditDispatcher"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditDispatcher"]; exists {
		return nil, storedErr
	}
	return c.auditDispatcher, nil
}

// VaultUseCase returns the secret envelope API.
func (c *Container) VaultUseCase() (vaultUseCase.VaultUseCase, error) {
	var err error
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, err = c.initVaultUseCase()
		if err != nil {
			c.initErrors["vaultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vaultUseCase"]; exists {
		return nil, storedErr
	}
	return c.vaultUseCase, nil
}

func (c *Container) initAuditOutboxRepository() (auditOutboxRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLOutboxRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLOutboxRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditSink selects the sink by AUDIT_SINK. The outbox sink writes inside the
// caller's transaction when one is present in the context.
func (c *Container) initAuditSink() (vaultUseCase.AuditSink, error) {
	switch c.config.AuditSink {
	case "", "log":
		return auditService.NewLogSink(c.Logger()), nil
	case "outbox":
		repo, err := c.AuditOutboxRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get audit outbox repository for audit sink: %w", err)
		}
		return auditService.NewOutboxSink(repo), nil
	default:
		return nil, fmt.Errorf("unsupported audit sink: %s", c.config.AuditSink)
	}
}

func (c *Container) initAuditDispatcher() (*auditUseCase.Dispatcher, error) {
	logger := c.Logger()

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for audit dispatcher: %w", err)
	}

	repo, err := c.AuditOutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit outbox repository for audit dispatcher: %w", err)
	}

	dispatcherConfig := auditUseCase.Config{
		Interval:   c.config.AuditWorkerInterval,
		BatchSize:  c.config.AuditWorkerBatchSize,
		MaxRetries: c.config.AuditWorkerMaxRetries,
	}

	return auditUseCase.NewDispatcher(
		dispatcherConfig,
		txManager,
		repo,
		auditUseCase.NewLogEventProcessor(logger),
		logger,
	), nil
}

func (c *Container) initVaultUseCase() (vaultUseCase.VaultUseCase, error) {
	keys, err := c.KeyHierarchyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get key hierarchy use case for vault use case: %w", err)
	}

	guard, err := c.Guard()
	if err != nil {
		return nil, fmt.Errorf("failed to get guard for vault use case: %w", err)
	}

	sink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for vault use case: %w", err)
	}

	security, err := c.SecurityMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get security metrics for vault use case: %w", err)
	}

	baseUseCase := vaultUseCase.NewVaultUseCase(
		keys,
		c.Codec(),
		guard,
		sink,
		c.config.VaultOperationTimeout,
		security,
		c.Logger(),
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
		}
		return vaultUseCase.NewVaultUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
