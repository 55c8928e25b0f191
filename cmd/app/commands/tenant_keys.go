package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	credentialsUseCase "github.com/allisson/tenantvault/internal/credentials/usecase"
	keysDomain "github.com/allisson/tenantvault/internal/keys/domain"
	keysUseCase "github.com/allisson/tenantvault/internal/keys/usecase"
)

type tenantKeyOutput struct {
	Version       uint32  `json:"version"`
	Algorithm     string  `json:"algorithm"`
	Active        bool    `json:"active"`
	CreatedAt     string  `json:"created_at"`
	DeactivatedAt *string `json:"deactivated_at,omitempty"`
}

func newTenantKeyOutput(key *keysDomain.TenantKey) tenantKeyOutput {
	output := tenantKeyOutput{
		Version:   key.Version,
		Algorithm: string(key.Algorithm),
		Active:    key.Active,
		CreatedAt: key.CreatedAt.Format(time.RFC3339),
	}
	if key.DeactivatedAt != nil {
		deactivatedAt := key.DeactivatedAt.Format(time.RFC3339)
		output.DeactivatedAt = &deactivatedAt
	}
	return output
}

// RunRotateTenantKey creates the next data key version of a tenant and makes it
// active. Existing envelopes stay readable under their own version.
func RunRotateTenantKey(
	ctx context.Context,
	resolver RoutingKeyResolver,
	keys keysUseCase.KeyHierarchyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	routingKey, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	sc, err := resolver.ResolveRoutingKey(ctx, routingKey)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant: %w", err)
	}

	key, err := keys.Rotate(ctx, sc)
	if err != nil {
		return fmt.Errorf("failed to rotate tenant key: %w", err)
	}

	logger.Info("tenant key rotated",
		slog.String("tenant_id", sc.TenantID().String()),
		slog.Uint64("version", uint64(key.Version)),
	)

	if format == "json" {
		return writeJSON(writer, newTenantKeyOutput(key))
	}
	_, _ = fmt.Fprintln(writer, "\nTenant key rotated successfully!")
	_, _ = fmt.Fprintf(writer, "Active version: %d\n", key.Version)
	_, _ = fmt.Fprintf(writer, "Algorithm:      %s\n", key.Algorithm)
	_, _ = fmt.Fprintln(writer, "\nRun reseal-credentials to move existing credentials to the new version.")
	return nil
}

// RunListTenantKeys prints the key versions of a tenant. Key material is never shown.
func RunListTenantKeys(
	ctx context.Context,
	resolver RoutingKeyResolver,
	keys keysUseCase.KeyHierarchyUseCase,
	writer io.Writer,
	routingKey, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	sc, err := resolver.ResolveRoutingKey(ctx, routingKey)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant: %w", err)
	}

	tenantKeys, err := keys.List(ctx, sc)
	if err != nil {
		return fmt.Errorf("failed to list tenant keys: %w", err)
	}

	if format == "json" {
		outputs := make([]tenantKeyOutput, 0, len(tenantKeys))
		for _, key := range tenantKeys {
			outputs = append(outputs, newTenantKeyOutput(key))
		}
		return writeJSON(writer, outputs)
	}

	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "VERSION\tALGORITHM\tACTIVE\tCREATED AT")
	for _, key := range tenantKeys {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%t\t%s\n",
			key.Version, key.Algorithm, key.Active, key.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// RunResealCredentials re-seals every credential of a tenant that is still sealed
// under an older key version. Safe to run repeatedly; finished credentials are skipped.
func RunResealCredentials(
	ctx context.Context,
	resolver RoutingKeyResolver,
	credentials credentialsUseCase.CredentialUseCase,
	logger *slog.Logger,
	writer io.Writer,
	routingKey string,
	batchSize int,
) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	sc, err := resolver.ResolveRoutingKey(ctx, routingKey)
	if err != nil {
		return fmt.Errorf("failed to resolve tenant: %w", err)
	}

	logger.Info("starting credential reseal",
		slog.String("tenant_id", sc.TenantID().String()),
		slog.Int("batch_size", batchSize),
	)

	result, err := credentials.Reseal(ctx, sc, batchSize)
	if err != nil {
		if result != nil {
			_, _ = fmt.Fprintf(writer, "Resealed %d credentials before failing\n", result.Resealed)
		}
		return fmt.Errorf("failed to reseal credentials: %w", err)
	}

	logger.Info("credential reseal completed",
		slog.String("tenant_id", sc.TenantID().String()),
		slog.Int("resealed", result.Resealed),
		slog.Uint64("active_version", uint64(result.ActiveVersion)),
	)

	_, _ = fmt.Fprintf(writer, "Resealed %d credentials under key version %d\n", result.Resealed, result.ActiveVersion)
	return nil
}
