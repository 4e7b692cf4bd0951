// Package scope implements tenant-scoped data access. Every query touching a
// tenant-partitioned table runs inside Gateway.Tx with an explicit
// AuthContext; the context is never ambient and never cached across
// transactions, so a pooled connection reused by another request starts
// from a clean slate.
package scope

import (
	"context"
	"strconv"

	"gorm.io/gorm"
)

// Role is the closed set of data-visibility roles.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEntreprise Role = "entreprise"
	RoleClient     Role = "client"
)

// Valid reports whether r belongs to the closed set. Anything else is
// treated as unauthenticated by callers.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleEntreprise, RoleClient:
		return true
	}
	return false
}

// AuthContext carries the caller's identity for row filtering.
// The zero value means "no context": tenant-partitioned queries then match
// no rows (fail closed), never all rows.
type AuthContext struct {
	UserID       uint
	Role         Role
	EntrepriseID uint
}

// Admin is the sanctioned bypass context for admin operations.
func Admin(userID uint) AuthContext {
	return AuthContext{UserID: userID, Role: RoleAdmin}
}

// Gateway executes statements in transactions carrying per-transaction
// session variables for row-level-security policies.
type Gateway struct {
	db *gorm.DB
}

func NewGateway(db *gorm.DB) *Gateway { return &Gateway{db: db} }

// Tx opens a transaction, installs the caller's context as
// transaction-local settings, then runs fn. set_config(..., true) scopes the
// variables to the transaction, so nothing survives onto the pooled
// connection after commit or rollback.
//
// The settings drive the Postgres RLS policies (see migrations). On other
// dialects they are skipped and isolation rests on the Tenant scope below;
// handlers always apply both.
func (g *Gateway) Tx(ctx context.Context, ac AuthContext, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			err := tx.Exec(
				"SELECT set_config('app.user_id', ?, true), set_config('app.role', ?, true), set_config('app.entreprise_id', ?, true)",
				strconv.FormatUint(uint64(ac.UserID), 10),
				string(ac.Role),
				strconv.FormatUint(uint64(ac.EntrepriseID), 10),
			).Error
			if err != nil {
				return err
			}
		}
		return fn(tx)
	})
}

// DB exposes the plain, unscoped handle for global resources (catalogue,
// categories). No isolation guarantee applies there.
func (g *Gateway) DB() *gorm.DB { return g.db }

// Tenant returns a GORM scope restricting a tenant-partitioned table to the
// caller's rows. Admin passes through, entreprise is pinned to its own id,
// everything else (client, missing or unknown context) matches nothing.
func Tenant(ac AuthContext) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch ac.Role {
		case RoleAdmin:
			return db
		case RoleEntreprise:
			if ac.EntrepriseID == 0 {
				return db.Where("1 = 0")
			}
			return db.Where("entreprise_id = ?", ac.EntrepriseID)
		default:
			return db.Where("1 = 0")
		}
	}
}
