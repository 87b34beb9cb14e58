package auth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"mop.org/internal/clock"
	"mop.org/internal/domain"
)

// Built-in permission ids.
const (
	PermAllModules           = "all_modules"
	PermCaseManagement       = "case_management"
	PermCaseReview           = "case_review"
	PermDashboardView        = "dashboard_view"
	PermUserManagement       = "user_management"
	PermRoleManagement       = "role_management"
	PermPermissionManagement = "permission_management"
	PermBusinessParams       = "business_params"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the built-in set of permissions and roles.
type Catalog struct {
	Permissions []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Category    string `yaml:"category"`
	} `yaml:"permissions"`
	Roles []struct {
		ID          string   `yaml:"id"`
		Name        string   `yaml:"name"`
		Description string   `yaml:"description"`
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// BuiltinCatalog decodes the embedded catalogue.
func BuiltinCatalog() (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	return c, nil
}

// EnsureCatalog creates the catalogue entries that are missing. Existing
// entries are left as they are. It returns how many entries were created.
func EnsureCatalog(ctx context.Context, store Store, c clock.Clock) (int, error) {
	if c == nil {
		c = clock.System()
	}
	cat, err := BuiltinCatalog()
	if err != nil {
		return 0, err
	}
	now := c.Now()
	created := 0
	for _, p := range cat.Permissions {
		err := store.CreatePermission(ctx, Permission{
			ID: p.ID, Name: p.Name, Description: p.Description, Category: p.Category,
			Active: true, CreatedAt: now, UpdatedAt: now,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrConflict):
		default:
			return created, fmt.Errorf("ensure permission %s: %w", p.ID, err)
		}
	}
	for _, r := range cat.Roles {
		err := store.CreateRole(ctx, Role{
			ID: r.ID, Name: r.Name, Description: r.Description, Active: true,
			Permissions: r.Permissions, CreatedAt: now, UpdatedAt: now,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrConflict):
		default:
			return created, fmt.Errorf("ensure role %s: %w", r.ID, err)
		}
	}
	return created, nil
}
