// AngelaMos | 2026
// dto.go

package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/booking-api/internal/core"
)

const dateLayout = time.DateOnly

type CreateBookingRequest struct {
	Name    string  `json:"name"     validate:"required,min=1,max=100"`
	Email   string  `json:"email"    validate:"required,email,max=255"`
	Date    string  `json:"date"     validate:"required"`
	FileURL *string `json:"file_url" validate:"omitempty,url,max=2048"`
}

type UpdateBookingRequest struct {
	Name          *string `json:"name,omitempty"           validate:"omitempty,min=1,max=100"`
	Email         *string `json:"email,omitempty"          validate:"omitempty,email,max=255"`
	Date          *string `json:"date,omitempty"`
	FileURL       *string `json:"file_url,omitempty"       validate:"omitempty,url,max=2048"`
	Status        *string `json:"status,omitempty"         validate:"omitempty,oneof=pending confirmed cancelled"`
	PaymentStatus *string `json:"payment_status,omitempty" validate:"omitempty,oneof=unpaid pending paid failed"`
	Override      bool    `json:"override,omitempty"`
}

// Normalize trims free-text fields so validation sees what will be stored.
func (r *CreateBookingRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Date = strings.TrimSpace(r.Date)
}

func (r *UpdateBookingRequest) Normalize() {
	r.Name = trimmed(r.Name)
	r.Email = trimmed(r.Email)
	r.Date = trimmed(r.Date)
}

// ToPatch converts the request into a Patch, parsing dates and enums.
func (r UpdateBookingRequest) ToPatch() (Patch, error) {
	p := Patch{
		Name:     trimmed(r.Name),
		Email:    lowered(r.Email),
		FileURL:  r.FileURL,
		Override: r.Override,
	}

	if p.Name != nil && *p.Name == "" {
		return Patch{}, fmt.Errorf("name must not be blank: %w", core.ErrInvalidInput)
	}

	if r.Date != nil {
		d, err := ParseDate(*r.Date)
		if err != nil {
			return Patch{}, err
		}
		p.Date = &d
	}

	if r.Status != nil {
		s, err := ParseStatus(*r.Status)
		if err != nil {
			return Patch{}, err
		}
		p.Status = &s
	}

	if r.PaymentStatus != nil {
		ps, err := ParsePaymentStatus(*r.PaymentStatus)
		if err != nil {
			return Patch{}, err
		}
		p.PaymentStatus = &ps
	}

	return p, nil
}

// ParseDate accepts a calendar date (2025-01-01) or an RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf(
		"date must be YYYY-MM-DD or RFC 3339, got %q: %w",
		s,
		core.ErrInvalidInput,
	)
}

type BookingResponse struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"owner_id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Date             time.Time `json:"date"`
	FileURL          *string   `json:"file_url,omitempty"`
	Status           string    `json:"status"`
	PaymentStatus    string    `json:"payment_status"`
	PaymentReference *string   `json:"payment_reference,omitempty"`
	Version          int       `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ListParams struct {
	Page          int
	PageSize      int
	OwnerID       string
	Status        Status
	PaymentStatus PaymentStatus
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:               b.ID,
		OwnerID:          b.OwnerID,
		Name:             b.Name,
		Email:            b.Email,
		Date:             b.Date,
		FileURL:          b.FileURL,
		Status:           string(b.Status),
		PaymentStatus:    string(b.PaymentStatus),
		PaymentReference: b.PaymentReference,
		Version:          b.Version,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
}

func ToResponseList(bookings []Booking) []BookingResponse {
	out := make([]BookingResponse, len(bookings))
	for i := range bookings {
		out[i] = ToResponse(&bookings[i])
	}
	return out
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func lowered(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(*s))
	return &v
}
