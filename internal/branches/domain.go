package branches

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

var (
	ErrNotFound = fmt.Errorf("%w: branch not found", httpx.ErrNotFound)
	// ErrDayEndDone means the branch already closed a day today.
	ErrDayEndDone = fmt.Errorf("%w: day end already processed for today", httpx.ErrValidation)
	// ErrInUse means shipments still reference the branch.
	ErrInUse = fmt.Errorf("%w: branch has shipments and cannot be deleted", httpx.ErrConflict)
	// ErrSlugTaken means a branch with the generated slug exists.
	ErrSlugTaken = fmt.Errorf("%w: branch already exists", httpx.ErrDuplicate)
)

// Branch is an office that books and receives shipments.
type Branch struct {
	Slug                   string
	Title                  string
	Description            string
	OwnerID                int64
	OwnerUsername          string
	CurrentOperationalDate time.Time
	LastDayEndAt           *time.Time
	CreatedAt              time.Time
}

// CreateInput describes a new branch and its administrator account.
type CreateInput struct {
	Title       string
	Description string
	// Username defaults to the generated slug.
	Username string
	Password string
}

// NewOwner is the account created alongside a branch.
type NewOwner struct {
	Username     string
	Name         string
	PasswordHash string
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slugify lowercases title, folds accents and joins words with dashes.
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}
