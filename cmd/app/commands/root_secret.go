package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
	cryptoService "github.com/allisson/tenantvault/internal/crypto/service"
)

const rootSecretSize = 32

// encrypter is implemented by gocloud.dev keepers.
type encrypter interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// RunCreateRootSecret generates a random process root secret and prints the
// environment variables that configure it.
//
// Without KMS flags ROOT_SECRET is printed as is. With both flags the secret is
// encrypted by the KMS keeper and ROOT_SECRET holds the base64 ciphertext; the
// decrypted value is byte-for-byte the secret a plain deployment would use.
//
// Security: never use the localsecrets provider in production.
func RunCreateRootSecret(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	kmsProvider, kmsKeyURI string,
) error {
	if (kmsProvider == "") != (kmsKeyURI == "") {
		return fmt.Errorf(
			"--kms-provider and --kms-key-uri are required together\n\nFor local development, use:\n  --kms-provider=localsecrets --kms-key-uri=\"base64key://<32-byte-base64-key>\"",
		)
	}

	if kmsKeyURI != "" {
		if err := cryptoService.ValidateKeyURI(kmsProvider, kmsKeyURI); err != nil {
			return fmt.Errorf("%w (supported providers: %s)", err, strings.Join(cryptoService.KMSProviders(), ", "))
		}
	}

	raw := make([]byte, rootSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate root secret: %w", err)
	}
	secret := []byte(base64.StdEncoding.EncodeToString(raw))
	cryptoDomain.Zero(raw)
	defer cryptoDomain.Zero(secret)

	if kmsKeyURI == "" {
		logger.Warn("root secret generated without KMS protection")
		_, _ = fmt.Fprintln(writer, "# Root Secret Configuration")
		_, _ = fmt.Fprintln(writer, "# Copy this variable to your .env file or secrets manager")
		_, _ = fmt.Fprintln(writer)
		_, _ = fmt.Fprintf(writer, "ROOT_SECRET=\"%s\"\n", secret)
		return nil
	}

	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	enc, ok := keeper.(encrypter)
	if !ok {
		return fmt.Errorf("KMS keeper does not support encryption")
	}

	ciphertext, err := enc.Encrypt(ctx, secret)
	if err != nil {
		return fmt.Errorf("failed to encrypt root secret with KMS: %w", err)
	}

	_, _ = fmt.Fprintln(writer, "# Root Secret Configuration (KMS Mode)")
	_, _ = fmt.Fprintln(writer, "# Copy these variables to your .env file or secrets manager")
	_, _ = fmt.Fprintln(writer)
	_, _ = fmt.Fprintf(writer, "KMS_PROVIDER=\"%s\"\n", kmsProvider)
	_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=\"%s\"\n", kmsKeyURI)
	_, _ = fmt.Fprintf(writer, "ROOT_SECRET=\"%s\"\n", base64.StdEncoding.EncodeToString(ciphertext))

	logger.Info("root secret generated", slog.String("kms_provider", kmsProvider))
	return nil
}
