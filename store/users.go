package store

import (
	"context"
	"strings"
	"time"

	"Gin_postgres_redis_inventory/barcode"
	"Gin_postgres_redis_inventory/models"
)

// NewUser is the input of AddUser and Register; Password is plain text.
type NewUser struct {
	Email     string      `json:"email"`
	Password  string      `json:"password"`
	Role      models.Role `json:"role"`
	Name      string      `json:"name" validate:"max=255"`
	NIP       string      `json:"nip" validate:"max=40"`
	BirthDate *time.Time  `json:"birthDate"`
	Address   string      `json:"address"`
}

// UserUpdate changes only the non-nil fields; Password is plain text.
type UserUpdate struct {
	Password  *string      `json:"password"`
	Role      *models.Role `json:"role"`
	Name      *string      `json:"name" validate:"omitempty,max=255"`
	NIP       *string      `json:"nip" validate:"omitempty,max=40"`
	BirthDate *time.Time   `json:"birthDate"`
	Address   *string      `json:"address"`
}

const minPasswordLen = 6

// NormalizeEmail is the user id form of an email address.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "store.ListUsers"
	return withFallback(ctx, op,
		func(ctx context.Context) ([]models.User, error) {
			users, err := s.remote.ListUsers(ctx)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.users.save(ctx, users) })
			return nonNil(users), nil
		},
		s.users.load,
	)
}

// GetUser returns (nil, nil) for an unknown email.
func (s *Store) GetUser(ctx context.Context, email string) (*models.User, error) {
	const op = "store.GetUser"
	email = NormalizeEmail(email)
	return nilIfNotFound(withFallback(ctx, op,
		func(ctx context.Context) (*models.User, error) {
			u, err := s.remote.FindUserByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.users.upsert(ctx, *u) })
			return u, nil
		},
		func(ctx context.Context) (*models.User, error) { return s.users.find(ctx, email) },
	))
}

// Register creates a self-service account, always with role user.
func (s *Store) Register(ctx context.Context, in NewUser) (*models.User, error) {
	in.Role = models.RoleUser
	return s.AddUser(ctx, in)
}

// AddUser fails with models.ErrDuplicate when the email is taken, as seen
// by the remote store or, when it is down, by the mirror.
func (s *Store) AddUser(ctx context.Context, in NewUser) (*models.User, error) {
	const op = "store.AddUser"
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	existing, err := s.GetUser(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.ErrDuplicate
	}

	hash, err := HashPassword(in.Password, s.pwParams)
	if err != nil {
		return nil, err
	}
	u := models.User{
		Email:     in.Email,
		Password:  hash,
		Role:      in.Role,
		Name:      in.Name,
		NIP:       in.NIP,
		BirthDate: in.BirthDate,
		Address:   in.Address,
		CreatedAt: s.now(),
		Barcode:   barcode.User(in.Email),
	}

	return withFallback(ctx, op,
		func(ctx context.Context) (*models.User, error) {
			if err := s.remote.CreateUser(ctx, &u); err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.users.upsert(ctx, u) })
			return &u, nil
		},
		func(ctx context.Context) (*models.User, error) {
			if err := s.users.upsert(ctx, u); err != nil {
				return nil, err
			}
			return &u, nil
		},
	)
}

func (s *Store) UpdateUser(ctx context.Context, email string, in UserUpdate) (*models.User, error) {
	const op = "store.UpdateUser"
	email = NormalizeEmail(email)
	if err := validateUserUpdate(in); err != nil {
		return nil, err
	}

	patch := models.UserPatch{Role: in.Role, NIP: in.NIP, BirthDate: in.BirthDate, Address: in.Address}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		patch.Name = &name
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password, s.pwParams)
		if err != nil {
			return nil, err
		}
		patch.Password = &hash
	}

	return withFallback(ctx, op,
		func(ctx context.Context) (*models.User, error) {
			u, err := s.remote.UpdateUser(ctx, email, patch)
			if err != nil {
				return nil, err
			}
			mirror(ctx, op, func(ctx context.Context) error { return s.users.upsert(ctx, *u) })
			return u, nil
		},
		func(ctx context.Context) (*models.User, error) {
			return s.users.update(ctx, email, func(u *models.User) error {
				patch.Apply(u)
				return nil
			})
		},
	)
}

// DeleteUser does not touch the user's borrow records.
func (s *Store) DeleteUser(ctx context.Context, email string) error {
	const op = "store.DeleteUser"
	email = NormalizeEmail(email)
	_, err := withFallback(ctx, op,
		func(ctx context.Context) (struct{}, error) {
			err := s.remote.DeleteUser(ctx, email)
			if err == nil || isNotFound(err) {
				mirror(ctx, op, func(ctx context.Context) error { return ignoreNotFound(s.users.remove(ctx, email)) })
			}
			return struct{}{}, err
		},
		func(ctx context.Context) (struct{}, error) { return struct{}{}, s.users.remove(ctx, email) },
	)
	return err
}

// CountAdmins counts users whose stored role is admin.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	return withFallback(ctx, "store.CountAdmins",
		s.remote.CountAdmins,
		func(ctx context.Context) (int, error) {
			admins, err := s.users.filter(ctx, func(u models.User) bool { return u.Role == models.RoleAdmin })
			return len(admins), err
		},
	)
}

// Authenticate checks the password against the stored hash. Unknown email and
// wrong password both yield models.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, models.ErrInvalidCredentials
	}
	if err := CheckPassword(u.Password, password); err != nil {
		return nil, err
	}
	return u, nil
}

func validateNewUser(in NewUser) error {
	v := &models.ValidationError{}
	if validate.Var(in.Email, "required,email,max=255") != nil {
		v.Add("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		v.Add("password", "password must be at least 6 characters")
	}
	if in.Name == "" {
		v.Add("name", "name is required")
	}
	if !in.Role.Valid() {
		v.Add("role", "role must be admin or user")
	}
	checkLengths(v, in)
	return v.OrNil()
}

func validateUserUpdate(in UserUpdate) error {
	v := &models.ValidationError{}
	if in.Password != nil && len(*in.Password) < minPasswordLen {
		v.Add("password", "password must be at least 6 characters")
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		v.Add("name", "name must not be empty")
	}
	if in.Role != nil && !in.Role.Valid() {
		v.Add("role", "role must be admin or user")
	}
	checkLengths(v, in)
	return v.OrNil()
}
