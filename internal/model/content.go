package model

import (
	"regexp"
	"strings"
	"time"
)

// Guild is a player group
type Guild struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Tag         string     `json:"tag,omitempty"`
	Description string     `json:"description,omitempty"`
	Motto       string     `json:"motto,omitempty"`
	Leader      FriendCode `json:"leader,omitempty"`
	Members     []string   `json:"members"`
	Founded     string     `json:"founded,omitempty"`
	Logo        string     `json:"logo,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// GuildPatch is a sparse guild update
type GuildPatch struct {
	Name        *string   `json:"name,omitempty"`
	Tag         *string   `json:"tag,omitempty"`
	Description *string   `json:"description,omitempty"`
	Motto       *string   `json:"motto,omitempty"`
	Members     *[]string `json:"members,omitempty"`
	Founded     *string   `json:"founded,omitempty"`
	Logo        *string   `json:"logo,omitempty"`
}

// Apply writes the non-nil patch fields onto the guild
func (p GuildPatch) Apply(g *Guild) {
	setString(&g.Name, p.Name)
	setString(&g.Tag, p.Tag)
	setString(&g.Description, p.Description)
	setString(&g.Motto, p.Motto)
	if p.Members != nil {
		g.Members = append([]string(nil), (*p.Members)...)
	}
	setString(&g.Founded, p.Founded)
	setString(&g.Logo, p.Logo)
}

// Assignment records which player holds a registry item.
// Each item ID can be held by at most one player.
type Assignment struct {
	AssignedTo FriendCode `json:"assignedTo,omitempty"`
	AssignedAt *time.Time `json:"assignedAt,omitempty"`
}

// Assigned reports whether the item is held
func (a *Assignment) Assigned() bool {
	return a.AssignedTo != ""
}

// Assign marks the item as held by fc
func (a *Assignment) Assign(fc FriendCode, at time.Time) {
	a.AssignedTo = fc
	a.AssignedAt = &at
}

// Release clears the holder
func (a *Assignment) Release() {
	a.AssignedTo = ""
	a.AssignedAt = nil
}

// Achievement defaults
const (
	DefaultAchievementTitle = "Untitled Achievement"
	DefaultAchievementIcon  = "🏆"
	DefaultCategory         = "General"
	DefaultRarity           = "Common"
	DefaultPoints           = 10
)

// Achievement is a uniquely assignable badge
type Achievement struct {
	ID             string `json:"achievementId"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Icon           string `json:"icon"`
	Category       string `json:"category"`
	Rarity         string `json:"rarity"`
	Points         int    `json:"points"`
	ParentTemplate string `json:"parentTemplate,omitempty"`
	Assignment
	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the registry ID
func (a *Achievement) Key() string { return a.ID }

// Slot returns the assignment record
func (a *Achievement) Slot() *Assignment { return &a.Assignment }

// Group returns the category used for stats
func (a *Achievement) Group() string { return a.Category }

// Label returns the title used for ID generation
func (a *Achievement) Label() string { return a.Title }

// WithDefaults fills unset fields
func (a *Achievement) WithDefaults(id string, now time.Time) *Achievement {
	c := *a
	c.ID = id
	if c.Title == "" {
		c.Title = DefaultAchievementTitle
	}
	if c.Icon == "" {
		c.Icon = DefaultAchievementIcon
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if c.Rarity == "" {
		c.Rarity = DefaultRarity
	}
	if c.Points == 0 {
		c.Points = DefaultPoints
	}
	c.Assignment = Assignment{}
	c.CreatedAt = now
	return &c
}

// Instance copies the template under a new ID, unassigned
func (a *Achievement) Instance(id string, now time.Time) *Achievement {
	c := *a
	c.ID = id
	c.ParentTemplate = a.ID
	c.Assignment = Assignment{}
	c.CreatedAt = now
	return &c
}

// Article defaults
const (
	DefaultArticleTitle = "Untitled Article"
	DefaultDifficulty   = "Beginner"
	maxSlugLength       = 50
)

// Article is a uniquely assignable guide or write-up
type Article struct {
	ID             string     `json:"articleId"`
	Title          string     `json:"title"`
	Excerpt        string     `json:"excerpt"`
	Content        string     `json:"content"`
	Category       string     `json:"category"`
	Difficulty     string     `json:"difficulty"`
	Tags           []string   `json:"tags"`
	Slug           string     `json:"slug"`
	ParentTemplate string     `json:"parentTemplate,omitempty"`
	IsPublished    bool       `json:"isPublished"`
	PublishedAt    *time.Time `json:"publishedAt,omitempty"`
	Assignment
	LastModified time.Time `json:"lastModified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Key returns the registry ID
func (a *Article) Key() string { return a.ID }

// Slot returns the assignment record
func (a *Article) Slot() *Assignment { return &a.Assignment }

// Group returns the category used for stats
func (a *Article) Group() string { return a.Category }

// Label returns the title used for ID generation
func (a *Article) Label() string { return a.Title }

// WithDefaults fills unset fields
func (a *Article) WithDefaults(id string, now time.Time) *Article {
	c := *a
	c.ID = id
	if c.Title == "" {
		c.Title = DefaultArticleTitle
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if c.Difficulty == "" {
		c.Difficulty = DefaultDifficulty
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.Slug = Slug(c.Title, "-", maxSlugLength)
	c.Assignment = Assignment{}
	c.IsPublished = false
	c.PublishedAt = nil
	c.LastModified = now
	c.CreatedAt = now
	return &c
}

// Instance copies the template under a new ID, unassigned
func (a *Article) Instance(id string, now time.Time) *Article {
	c := *a
	c.ID = id
	c.ParentTemplate = a.ID
	c.Tags = append([]string(nil), a.Tags...)
	c.Assignment = Assignment{}
	c.LastModified = now
	c.CreatedAt = now
	return &c
}

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s]`)
	slugSpace = regexp.MustCompile(`\s+`)
)

// Slug lowercases the title, drops punctuation and joins words with sep.
// A maxLen of zero means no limit.
func Slug(title, sep string, maxLen int) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(title), "")
	s = slugSpace.ReplaceAllString(s, sep)
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
