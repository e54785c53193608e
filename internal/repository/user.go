package repository

import (
	"context"
	"fundverse/internal/global/errs"
	"fundverse/internal/global/kvstore"
	"fundverse/internal/global/storagekeys"
	"fundverse/internal/model"
	"fundverse/tools"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const MinPasswordLength = 6

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UserRepository 用户列表直接存放在 kvstore 中，只有本地模式
// 远程模式下由服务端的 user 模块持有同一个仓库
type UserRepository struct {
	store *kvstore.Service
	opts  options
	mu    sync.Mutex
}

func NewUserRepository(store *kvstore.Service, opts ...Option) *UserRepository {
	return &UserRepository{store: store, opts: buildOptions(opts)}
}

// Signup 只允许注册 student / company，邮箱重复返回 errs.ErrEmailTaken
func (r *UserRepository) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	fields := make(map[string]string)
	if strings.TrimSpace(in.Name) == "" {
		fields["name"] = "Name is required"
	}
	if !model.EmailPattern.MatchString(in.Email) {
		fields["email"] = "Valid email is required"
	}
	if len(in.Password) < MinPasswordLength {
		fields["password"] = "Password must be at least 6 characters"
	}
	role, ok := model.ParseRole(in.Role)
	if in.Role == "" {
		role, ok = model.RoleStudent, true
	}
	if !ok || role == model.RoleAdmin {
		fields["role"] = "Role must be student or company"
	}
	if len(fields) > 0 {
		return nil, errs.NewValidation(fields)
	}
	return r.create(ctx, in.Name, in.Email, in.Password, role)
}

// EnsureAdmin 首次启动时写入管理员，已存在则直接返回
func (r *UserRepository) EnsureAdmin(ctx context.Context, name, email, password string) (*model.User, error) {
	if u := r.findByEmail(ctx, email); u != nil {
		return u, nil
	}
	if password == "" {
		return nil, errs.NewValidation(map[string]string{"password": "Admin password is required"})
	}
	u, err := r.create(ctx, name, email, password, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	r.opts.log.Info("已创建管理员账号", "email", u.Email)
	return u, nil
}

func (r *UserRepository) create(ctx context.Context, name, email, password string, role model.Role) (*model.User, error) {
	hash, err := tools.PasswordEncrypt(password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return nil, err
	}

	users := r.load(ctx)
	want := model.NormalizeEmail(email)
	for _, u := range users {
		if model.NormalizeEmail(u.Email) == want {
			return nil, errors.WithStack(errs.ErrEmailTaken)
		}
	}

	u := model.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    model.Now(r.opts.now()),
	}
	users = append(users, u)
	if !r.store.Set(ctx, storagekeys.Users, users) {
		return nil, storageErr(r.store, "persist users")
	}
	return &u, nil
}

// Login role 为空时不检查角色；任何不匹配都返回 errs.ErrInvalidCredentials
func (r *UserRepository) Login(ctx context.Context, email, password, role string) (*model.User, error) {
	u := r.findByEmail(ctx, email)
	if u == nil || !tools.PasswordCompare(u.PasswordHash, password) {
		return nil, errors.WithStack(errs.ErrInvalidCredentials)
	}
	if role != "" {
		want, ok := model.ParseRole(role)
		if !ok || want != u.Role {
			return nil, errors.WithStack(errs.ErrInvalidCredentials)
		}
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	return r.load(ctx), nil
}

// GetByID 不存在时返回 (nil, nil)
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	for _, u := range r.load(ctx) {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

// Delete 幂等
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return false, err
	}

	users := r.load(ctx)
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return true, nil
	}
	if !r.store.Set(ctx, storagekeys.Users, kept) {
		return false, storageErr(r.store, "persist users")
	}
	r.opts.log.Info("删除用户", "id", id)
	return true, nil
}

// Clear 删除 keep 以外的全部用户，返回删除的数量
func (r *UserRepository) Clear(ctx context.Context, keep ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := writable(ctx, r.store); err != nil {
		return 0, err
	}

	users := r.load(ctx)
	kept := make([]model.User, 0, len(keep))
	for _, u := range users {
		if slices.Contains(keep, u.ID) {
			kept = append(kept, u)
		}
	}
	removed := len(users) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	ok := false
	if len(kept) == 0 {
		ok = r.store.Remove(ctx, storagekeys.Users)
	} else {
		ok = r.store.Set(ctx, storagekeys.Users, kept)
	}
	if !ok {
		return 0, storageErr(r.store, "clear users")
	}
	r.opts.log.Warn("已清空用户", "removed", removed, "kept", len(kept))
	return removed, nil
}

func (r *UserRepository) findByEmail(ctx context.Context, email string) *model.User {
	want := model.NormalizeEmail(email)
	for _, u := range r.load(ctx) {
		if model.NormalizeEmail(u.Email) == want {
			return &u
		}
	}
	return nil
}

func (r *UserRepository) load(ctx context.Context) []model.User {
	return kvstore.Get(ctx, r.store, storagekeys.Users, []model.User{})
}
