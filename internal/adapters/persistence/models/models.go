package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Regions
// ============================================================

// Municipality represents municipalities table
type Municipality struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"uniqueIndex;size:100;not null" json:"name"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	Barangays []Barangay `gorm:"foreignKey:MunicipalityID" json:"barangays,omitempty"`
}

func (Municipality) TableName() string {
	return "municipalities"
}

// Barangay represents barangays table
type Barangay struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	Name           string        `gorm:"size:100;not null" json:"name"`
	MunicipalityID uint          `gorm:"index;not null" json:"municipality_id"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	Municipality   *Municipality `gorm:"foreignKey:MunicipalityID" json:"municipality,omitempty"`
}

func (Barangay) TableName() string {
	return "barangays"
}

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table. Credential tokens are stored as SHA-256
// hashes; the plain token only ever leaves the process inside an email.
type User struct {
	ID                       uint       `gorm:"primaryKey" json:"id"`
	Username                 string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email                    string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password                 string     `gorm:"size:255;not null" json:"-"`
	FirstName                string     `gorm:"size:100" json:"first_name"`
	LastName                 string     `gorm:"size:100" json:"last_name"`
	Role                     string     `gorm:"size:20;not null;default:'resident';index" json:"role"`
	Status                   string     `gorm:"size:20;not null;default:'active'" json:"status"`
	BarangayID               *uint      `gorm:"index" json:"barangay_id"`
	IsVerified               bool       `gorm:"not null;default:false;index" json:"is_verified"`
	VerificationToken        *string    `gorm:"size:64;index" json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	ResetToken               *string    `gorm:"size:64;index" json:"-"`
	ResetTokenExpires        *time.Time `json:"-"`
	CreatedAt                time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Barangay *Barangay `gorm:"foreignKey:BarangayID" json:"barangay,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID               uint      `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	IsVerified       bool      `json:"is_verified"`
	BarangayID       *uint     `json:"barangay_id"`
	BarangayName     string    `json:"barangay_name,omitempty"`
	MunicipalityName string    `json:"municipality_name,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	resp := &UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Role:       u.Role,
		Status:     u.Status,
		IsVerified: u.IsVerified,
		BarangayID: u.BarangayID,
		CreatedAt:  u.CreatedAt,
	}

	if u.Barangay != nil {
		resp.BarangayName = u.Barangay.Name
		if u.Barangay.Municipality != nil {
			resp.MunicipalityName = u.Barangay.Municipality.Name
		}
	}

	return resp
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Certificate Requests
// ============================================================

// CertificateRequest represents certificate_requests table.
// MunicipalityName and BarangayName are copied at submission and never re-joined.
type CertificateRequest struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           uint       `gorm:"index;not null" json:"user_id"`
	BarangayID       *uint      `gorm:"index" json:"barangay_id"`
	CertificateType  string     `gorm:"size:100;not null" json:"certificate_type"`
	Purpose          string     `gorm:"type:text;not null" json:"purpose"`
	FullName         string     `gorm:"size:200;not null" json:"full_name"`
	Birthdate        *time.Time `json:"birthdate"`
	Age              *int       `json:"age"`
	CivilStatus      string     `gorm:"size:30" json:"civil_status"`
	Address          string     `gorm:"size:255;not null" json:"address"`
	ContactNumber    string     `gorm:"size:30" json:"contact_number"`
	MunicipalityName string     `gorm:"size:100" json:"municipality_name"`
	BarangayName     string     `gorm:"size:100" json:"barangay_name"`
	Status           string     `gorm:"size:20;not null;default:'Pending';index" json:"status"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Requester   *User                   `gorm:"foreignKey:UserID" json:"requester,omitempty"`
	Attachments []CertificateAttachment `gorm:"foreignKey:CertificateRequestID;constraint:OnDelete:CASCADE" json:"attachments,omitempty"`
}

func (CertificateRequest) TableName() string {
	return "certificate_requests"
}

// CertificateAttachment represents certificate_attachments table.
// Only the storage-relative path is kept; bytes live in file storage.
type CertificateAttachment struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	CertificateRequestID uint      `gorm:"index;not null" json:"certificate_request_id"`
	FilePath             string    `gorm:"size:255;not null" json:"file_path"`
	OriginalName         string    `gorm:"size:255" json:"original_name"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (CertificateAttachment) TableName() string {
	return "certificate_attachments"
}

// ============================================================
// Notifications & Inbox
// ============================================================

// Notification represents notifications table
type Notification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	Type        string    `gorm:"size:50;not null;index" json:"type"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	ReferenceID *uint     `json:"reference_id"`
	IsRead      bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt   time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// ResidentInbox represents resident_inbox table
type ResidentInbox struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UserID               uint      `gorm:"index;not null" json:"user_id"`
	Type                 string    `gorm:"size:50;not null" json:"type"`
	Title                string    `gorm:"size:200;not null" json:"title"`
	Body                 string    `gorm:"type:text" json:"body"`
	CertificateRequestID *uint     `gorm:"index" json:"certificate_request_id"`
	IsRead               bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ResidentInbox) TableName() string {
	return "resident_inbox"
}

// ResidentInboxEntry is an inbox row joined with its live certificate request.
// Request fields are nil when the message has no request or it was deleted.
type ResidentInboxEntry struct {
	ID                   uint      `json:"id"`
	UserID               uint      `json:"user_id"`
	Type                 string    `json:"type"`
	Title                string    `json:"title"`
	Body                 string    `json:"body"`
	CertificateRequestID *uint     `json:"certificate_request_id"`
	IsRead               bool      `json:"is_read"`
	CreatedAt            time.Time `json:"created_at"`

	CertificateType   *string `json:"certificate_type"`
	Purpose           *string `json:"purpose"`
	FullName          *string `json:"full_name"`
	CivilStatus       *string `json:"civil_status"`
	Address           *string `json:"address"`
	ContactNumber     *string `json:"contact_number"`
	BarangayName      *string `json:"barangay_name"`
	MunicipalityName  *string `json:"municipality_name"`
	CertificateStatus *string `json:"certificate_status"`
}

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Regions
		&Municipality{},
		&Barangay{},
		// Auth
		&User{},
		&RefreshToken{},
		// Certificates
		&CertificateRequest{},
		&CertificateAttachment{},
		// Notification sink
		&Notification{},
		&ResidentInbox{},
	)
}
