package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	tenantDomain "github.com/allisson/tenantvault/internal/tenant/domain"
	tenantUseCase "github.com/allisson/tenantvault/internal/tenant/usecase"
)

type tenantOutput struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	RoutingKey string `json:"routing_key"`
	Plan       string `json:"plan"`
	IsActive   bool   `json:"is_active"`
	IsAdmin    bool   `json:"is_admin"`
	CreatedAt  string `json:"created_at"`
}

func newTenantOutput(tenant *tenantDomain.Tenant) tenantOutput {
	return tenantOutput{
		ID:         tenant.ID.String(),
		Name:       tenant.Name,
		RoutingKey: tenant.RoutingKey,
		Plan:       string(tenant.Plan),
		IsActive:   tenant.IsActive,
		IsAdmin:    tenant.IsAdmin,
		CreatedAt:  tenant.CreatedAt.Format(time.RFC3339),
	}
}

func printTenant(writer io.Writer, format, heading string, tenant *tenantDomain.Tenant) error {
	if format == "json" {
		return writeJSON(writer, newTenantOutput(tenant))
	}
	_, _ = fmt.Fprintf(writer, "\n%s\n", heading)
	_, _ = fmt.Fprintf(writer, "Tenant ID:   %s\n", tenant.ID)
	_, _ = fmt.Fprintf(writer, "Name:        %s\n", tenant.Name)
	_, _ = fmt.Fprintf(writer, "Routing key: %s\n", tenant.RoutingKey)
	_, _ = fmt.Fprintf(writer, "Plan:        %s\n", tenant.Plan)
	_, _ = fmt.Fprintf(writer, "Active:      %t\n", tenant.IsActive)
	return nil
}

// RunCreateTenant provisions a regular tenant and its first data key version.
//
// Requirements: Database must be migrated and ROOT_SECRET must be configured.
func RunCreateTenant(
	ctx context.Context,
	tenantUseCase tenantUseCase.TenantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, routingKey, plan, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tenantPlan := tenantDomain.Plan(plan)
	if !tenantPlan.Valid() {
		return fmt.Errorf("invalid plan: %s (valid options: free, basic, premium, enterprise)", plan)
	}

	logger.Info("creating tenant", slog.String("routing_key", routingKey))

	tenant, err := tenantUseCase.Provision(ctx, name, routingKey, tenantPlan)
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	logger.Info("tenant created successfully",
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("routing_key", tenant.RoutingKey),
	)

	return printTenant(writer, format, "Tenant created successfully!", tenant)
}

// RunCreateAdminTenant provisions the platform-admin tenant. Running it again
// returns the existing admin tenant.
func RunCreateAdminTenant(
	ctx context.Context,
	tenantUseCase tenantUseCase.TenantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	name, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tenant, err := tenantUseCase.ProvisionAdmin(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create admin tenant: %w", err)
	}

	logger.Info("admin tenant ready", slog.String("tenant_id", tenant.ID.String()))

	return printTenant(writer, format, "Admin tenant ready!", tenant)
}

// RunDeactivateTenant deactivates the tenant addressed by routingKey. Its requests
// are rejected from then on; its data and keys are kept.
func RunDeactivateTenant(
	ctx context.Context,
	tenantUseCase tenantUseCase.TenantUseCase,
	logger *slog.Logger,
	writer io.Writer,
	routingKey, format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	tenant, err := tenantUseCase.GetByRoutingKey(ctx, routingKey)
	if err != nil {
		return fmt.Errorf("failed to find tenant: %w", err)
	}

	tenant, err = tenantUseCase.Deactivate(ctx, tenant.ID)
	if err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}

	logger.Info("tenant deactivated",
		slog.String("tenant_id", tenant.ID.String()),
		slog.String("routing_key", tenant.RoutingKey),
	)

	return printTenant(writer, format, "Tenant deactivated.", tenant)
}
