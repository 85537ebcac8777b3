package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

// Attachment storage backends.
const (
	StorageDisk  = "disk"
	StorageDrive = "drive"
)

type (
	TransactionType string

	Transaction struct {
		ID          string          `json:"id"`
		OwnerID     string          `json:"userId"`
		Type        TransactionType `json:"type"`
		Amount      Money           `json:"amount"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		CategoryID  string          `json:"categoryId"`
		Category    *Category       `json:"category,omitempty"`
		Tags        []Tag           `json:"tags,omitempty"`
		Attachments []Attachment    `json:"attachments,omitempty"`
		CreatedAt   time.Time       `json:"createdAt"`
		UpdatedAt   time.Time       `json:"updatedAt"`
	}

	Category struct {
		ID            string     `json:"id"`
		OwnerID       string     `json:"userId"`
		Name          string     `json:"name"`
		Color         string     `json:"color"`
		Description   string     `json:"description,omitempty"`
		ParentID      string     `json:"parentId,omitempty"`
		Subcategories []Category `json:"subcategories,omitempty"`
	}

	Tag struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Attachment struct {
		ID            string    `json:"id"`
		TransactionID string    `json:"transactionId"`
		FileName      string    `json:"fileName"`
		FileURL       string    `json:"fileUrl"`
		FileSize      int64     `json:"fileSize"`
		MIMEType      string    `json:"mimeType"`
		StorageType   string    `json:"storageType"`
		StorageRef    string    `json:"-"`
		CreatedAt     time.Time `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("category is required")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidColor     = errors.New("invalid color format")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Valid reports whether the type is one of the two enumerated values.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (tx Transaction) Validate() error {
	if !tx.Type.Valid() {
		return ErrInvalidType
	}
	if err := tx.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(tx.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(tx.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	if tx.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(tx.CategoryID) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (c Category) Validate() error {
	if len(strings.TrimSpace(c.Name)) == 0 {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	if !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	if len(c.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}
