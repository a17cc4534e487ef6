package api

import "time"

// TimeLayout is how the client writes timestamps into JSON columns.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in TimeLayout, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts the timestamp shapes the backend and older clients
// produce. The zero time and false are returned for anything else.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05.999999-07", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Auth Types
type Credentials struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// HasToken reports whether the backend issued tokens. Sign-ups that need
// email confirmation return a user without a session.
func (s *Session) HasToken() bool {
	return s != nil && s.AccessToken != ""
}

// Expiry returns when the access token stops being valid.
func (s *Session) Expiry(now time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return now.Add(time.Duration(s.ExpiresIn) * time.Second)
}

type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	Role             string                 `json:"role,omitempty"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time             `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
}

// List Types
type List struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Owner      string    `json:"owner"`
	InviteCode string    `json:"invite_code"`
	CreatedAt  time.Time `json:"created_at"`
}

type NewList struct {
	Name       string `json:"name"`
	Owner      string `json:"owner"`
	InviteCode string `json:"invite_code"`
}

// Item Types
const (
	CategoryAll       = "All"
	CategoryTravel    = "Travel"
	CategoryFood      = "Food"
	CategoryAdventure = "Adventure"
	CategoryGoals     = "Goals"
	CategoryCute      = "Cute"
)

// Categories lists the categories an item can carry. CategoryAll is a filter only.
var Categories = []string{CategoryTravel, CategoryFood, CategoryAdventure, CategoryGoals, CategoryCute}

// ValidCategory reports whether c may be stored on an item.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Memory struct {
	File string `json:"file"`
	Note string `json:"note"`
	Date string `json:"date"`
	URL  string `json:"url,omitempty"`
}

type Item struct {
	ID          string     `json:"id"`
	ListID      string     `json:"list_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Secret      bool       `json:"secret"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	Photos      []string   `json:"photos"`
	Memories    []Memory   `json:"memories"`
}

// HasPhoto reports whether file is already recorded on the item.
func (i *Item) HasPhoto(file string) bool {
	for _, p := range i.Photos {
		if p == file {
			return true
		}
	}
	return false
}

// MemoryFor returns the memory attached to file, if any.
func (i *Item) MemoryFor(file string) (Memory, bool) {
	for _, m := range i.Memories {
		if m.File == file {
			return m, true
		}
	}
	return Memory{}, false
}

type NewItem struct {
	ListID      string   `json:"list_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Secret      bool     `json:"secret"`
	Completed   bool     `json:"completed"`
	Photos      []string `json:"photos"`
	Memories    []Memory `json:"memories"`
}

type ItemQuery struct {
	Category  string
	Completed *bool
	Ascending bool
}

// Storage Types
type StorageObject struct {
	Name      string                 `json:"name"`
	ID        *string                `json:"id"`
	UpdatedAt string                 `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// IsFolder reports whether the entry is a path prefix rather than a file.
func (o StorageObject) IsFolder() bool {
	return o.ID == nil
}

type SignedURLRequest struct {
	ExpiresIn int `json:"expiresIn"`
}

type listObjectsRequest struct {
	Prefix string            `json:"prefix"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	SortBy map[string]string `json:"sortBy"`
}

type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}
