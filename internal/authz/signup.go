package authz

import (
	"strings"

	"github.com/campusconnect/event-service/internal/models"
)

// DomainPolicy decides roles from email domains.
type DomainPolicy struct {
	reserved []string
}

func NewDomainPolicy(reservedDomains []string) DomainPolicy {
	domains := make([]string, 0, len(reservedDomains))
	for _, d := range reservedDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			domains = append(domains, d)
		}
	}
	return DomainPolicy{reserved: domains}
}

// IsReserved reports whether email belongs to one of the institutional domains.
// Only an exact domain match counts; subdomains of a reserved domain do not.
func (p DomainPolicy) IsReserved(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	for _, d := range p.reserved {
		if domain == d {
			return true
		}
	}
	return false
}

// SignUpRole returns the role an account gets at sign-up.
// Reserved domains always get admin. Everything else is student, and ok is false
// when the caller asked for admin from a non-reserved domain.
func (p DomainPolicy) SignUpRole(email string, requested models.UserRole) (role models.UserRole, ok bool) {
	if p.IsReserved(email) {
		return models.RoleAdmin, true
	}
	if models.ParseRole(string(requested)) == models.RoleAdmin {
		return models.RoleStudent, false
	}
	return models.RoleStudent, true
}

func (p DomainPolicy) Domains() []string {
	out := make([]string, len(p.reserved))
	copy(out, p.reserved)
	return out
}
