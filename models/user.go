package models

import (
	"time"
)

const UserTable = "users"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// User 主键即邮箱；Password 存 argon2id 哈希
type User struct {
	Email     string     `gorm:"primaryKey;size:255" json:"email"`
	Password  string     `gorm:"size:255;not null" json:"password,omitempty"`
	Role      Role       `gorm:"size:10;not null" json:"role"`
	Name      string     `gorm:"size:255;not null" json:"name"`
	NIP       string     `gorm:"column:nip;size:40" json:"nip,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Address   string     `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	Barcode   string     `gorm:"size:64" json:"barcode"`
}

func (User) TableName() string { return UserTable }

// Public 去掉口令哈希，给前端用
func (u User) Public() User {
	u.Password = ""
	return u
}

// UserPatch 部分更新；Password 在进入存储层之前已经是哈希
type UserPatch struct {
	Password  *string    `json:"password,omitempty"`
	Role      *Role      `json:"role,omitempty"`
	Name      *string    `json:"name,omitempty"`
	NIP       *string    `json:"nip,omitempty"`
	BirthDate *time.Time `json:"birthDate,omitempty"`
	Address   *string    `json:"address,omitempty"`
}

func (p UserPatch) Columns() map[string]any {
	m := map[string]any{}
	if p.Password != nil {
		m["password"] = *p.Password
	}
	if p.Role != nil {
		m["role"] = string(*p.Role)
	}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.NIP != nil {
		m["nip"] = *p.NIP
	}
	if p.BirthDate != nil {
		m["birth_date"] = *p.BirthDate
	}
	if p.Address != nil {
		m["address"] = *p.Address
	}
	return m
}

func (p UserPatch) Apply(u *User) {
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.NIP != nil {
		u.NIP = *p.NIP
	}
	if p.BirthDate != nil {
		t := *p.BirthDate
		u.BirthDate = &t
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
}

// Credential 每个注册的 Passkey 一条。只存远端，不进本地镜像。
type Credential struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserEmail       string    `gorm:"size:255;index;not null" json:"userEmail"`
	CredentialID    []byte    `gorm:"uniqueIndex" json:"credentialId"`
	PublicKey       []byte    `json:"publicKey"`
	AttestationType string    `gorm:"size:64" json:"attestationType"`
	AAGUID          []byte    `json:"aaguid"`
	SignCount       uint32    `json:"signCount"`
	CloneWarning    bool      `json:"cloneWarning"`
	BackupEligible  bool      `json:"backupEligible"`
	BackupState     bool      `json:"backupState"`
	CreatedAt       time.Time `json:"createdAt"`

	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

func (Credential) TableName() string { return "user_credentials" }
