package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/park-passes/internal/model"
	"github.com/iliyamo/park-passes/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = "id, email, password_hash, role, retailer_group_id, is_active, created_at, updated_at"

func scanUser(s interface{ Scan(...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.RetailerGroupID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts a customer and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password string, cost int) (uint64, error) {
	return r.CreateWithRole(ctx, email, password, model.RoleCustomer, nil, cost)
}

// CreateWithRole inserts a user of any role.  Retailer users carry the id
// of their retailer group.
func (r *UserRepo) CreateWithRole(ctx context.Context, email, password, role string, retailerGroupID *uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, retailer_group_id) VALUES (?,?,?,?)",
		email, hash, role, retailerGroupID)
	if err != nil {
		if IsDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return lastID(res)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email), &u)
	return u, notFound(err)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id), &u)
	return u, notFound(err)
}
