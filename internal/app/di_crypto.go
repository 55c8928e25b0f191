package app

import (
	"fmt"
	"log/slog"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
)

// Codec returns the AEAD codec shared by the key hierarchy and the envelope API.
func (c *Container) Codec() cryptoService.Codec {
	c.codecInit.Do(func() {
		c.codec = cryptoService.NewCodec(cryptoService.NewAEADManager())
	})
	return c.codec
}

// KMSService returns the KMS service.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// RootSecretSource returns the source of the process root secret. When KMS_KEY_URI
// is configured ROOT_SECRET is treated as a KMS ciphertext.
func (c *Container) RootSecretSource() (cryptoDomain.RootSecretSource, error) {
	var err error
	c.rootSecretInit.Do(func() {
		c.rootSecret, err = c.initRootSecretSource()
		if err != nil {
			c.initErrors["rootSecret"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rootSecret"]; exists {
		return nil, storedErr
	}
	return c.rootSecret, nil
}

// WrappingKeyDeriver returns the memoizing root wrapping key deriver.
func (c *Container) WrappingKeyDeriver() (*cryptoService.WrappingKeyDeriver, error) {
	var err error
	c.wrappingKeyInit.Do(func() {
		c.wrappingKey, err = c.initWrappingKeyDeriver()
		if err != nil {
			c.initErrors["wrappingKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["wrappingKey"]; exists {
		return nil, storedErr
	}
	return c.wrappingKey, nil
}

// DataKeyAlgorithm returns the AEAD algorithm used for new tenant key versions.
func (c *Container) DataKeyAlgorithm() (cryptoDomain.Algorithm, error) {
	var err error
	c.dataAlgorithmInit.Do(func() {
		c.dataAlgorithm, err = cryptoDomain.ParseAlgorithm(c.config.CryptoAlgorithm)
		if err != nil {
			c.initErrors["dataAlgorithm"] = err
		}
	})
	if err != nil {
		return "", err
	}
	if storedErr, exists := c.initErrors["dataAlgorithm"]; exists {
		return "", storedErr
	}
	return c.dataAlgorithm, nil
}

func (c *Container) initRootSecretSource() (cryptoDomain.RootSecretSource, error) {
	if c.config.RootSecret == "" {
		return nil, fmt.Errorf("ROOT_SECRET is not configured: %w", cryptoDomain.ErrRootSecretUnavailable)
	}

	if c.config.KMSKeyURI != "" {
		if err := cryptoService.ValidateKeyURI(c.config.KMSProvider, c.config.KMSKeyURI); err != nil {
			return nil, err
		}
		c.Logger().Info("root secret protected by KMS", slog.String("kms_provider", c.config.KMSProvider))
		return cryptoService.NewKMSRootSecret(c.KMSService(), c.config.KMSKeyURI, c.config.RootSecret), nil
	}

	return cryptoService.NewStaticRootSecret(c.config.RootSecret), nil
}

func (c *Container) initWrappingKeyDeriver() (*cryptoService.WrappingKeyDeriver, error) {
	source, err := c.RootSecretSource()
	if err != nil {
		return nil, fmt.Errorf("failed to get root secret source for wrapping key deriver: %w", err)
	}
	return cryptoService.NewWrappingKeyDeriver(source, c.config.KDFSalt, c.config.KDFIterations), nil
}
