package model

import "time"

// AdminRole grades admin privileges on an identity
type AdminRole string

const (
	AdminRoleOwner     AdminRole = "owner"
	AdminRoleAdmin     AdminRole = "admin"
	AdminRoleModerator AdminRole = "moderator"
)

// Valid reports whether r is one of the known roles (empty is valid: no role)
func (r AdminRole) Valid() bool {
	switch r {
	case "", AdminRoleOwner, AdminRoleAdmin, AdminRoleModerator:
		return true
	}
	return false
}

// Identity is the authoritative record for one community member.
// Security fields (PasswordHash, EditKey, IsAdmin, AdminRole) are the only ones
// the auth core reads; the rest is profile data.
type Identity struct {
	FriendCode   FriendCode `json:"friendCode"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	EditKey      string     `json:"editKey"`
	IsAdmin      bool       `json:"isAdmin"`
	AdminRole    AdminRole  `json:"adminRole,omitempty"`

	IGN            string   `json:"ign"`
	Name           string   `json:"name,omitempty"`
	Nickname       string   `json:"nickname,omitempty"`
	Title          string   `json:"title,omitempty"`
	AvatarImage    string   `json:"avatarImage,omitempty"`
	Rating         int      `json:"rating"`
	Rank           string   `json:"rank,omitempty"`
	Trophy         string   `json:"trophy,omitempty"`
	Age            string   `json:"age,omitempty"`
	Motto          string   `json:"motto,omitempty"`
	Joined         string   `json:"joined,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	GuildID        string   `json:"guildId,omitempty"`
	AchievementIDs []string `json:"achievementIds"`
	ArticleIDs     []string `json:"articleIds"`
	Fingerprint    string   `json:"fingerprint,omitempty"`
	IsPublic       bool     `json:"isPublic"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPassword reports whether the identity can authenticate by password
func (i *Identity) HasPassword() bool {
	return i.PasswordHash != ""
}

// Summary returns the session snapshot of the identity
func (i *Identity) Summary() SessionUser {
	return SessionUser{
		FriendCode: i.FriendCode,
		IGN:        i.IGN,
		IsAdmin:    i.IsAdmin,
	}
}

// Public strips the security fields for display and listing
func (i *Identity) Public() *Identity {
	c := i.Clone()
	c.PasswordHash = ""
	c.EditKey = ""
	return c
}

// Clone returns a deep copy
func (i *Identity) Clone() *Identity {
	c := *i
	c.AchievementIDs = append([]string(nil), i.AchievementIDs...)
	c.ArticleIDs = append([]string(nil), i.ArticleIDs...)
	return &c
}

// SessionUser is the identity snapshot carried by a session
type SessionUser struct {
	FriendCode FriendCode `json:"friendCode"`
	IGN        string     `json:"ign"`
	IsAdmin    bool       `json:"isAdmin"`
}

// IdentityPatch is a sparse update to an identity. Only non-nil fields are written.
// FriendCode, EditKey and CreatedAt have no patch field and can never be changed.
type IdentityPatch struct {
	PasswordHash *string    `json:"passwordHash,omitempty"`
	IsAdmin      *bool      `json:"isAdmin,omitempty"`
	AdminRole    *AdminRole `json:"adminRole,omitempty"`

	IGN            *string   `json:"ign,omitempty"`
	Name           *string   `json:"name,omitempty"`
	Nickname       *string   `json:"nickname,omitempty"`
	Title          *string   `json:"title,omitempty"`
	AvatarImage    *string   `json:"avatarImage,omitempty"`
	Rating         *int      `json:"rating,omitempty"`
	Rank           *string   `json:"rank,omitempty"`
	Trophy         *string   `json:"trophy,omitempty"`
	Age            *string   `json:"age,omitempty"`
	Motto          *string   `json:"motto,omitempty"`
	Joined         *string   `json:"joined,omitempty"`
	Bio            *string   `json:"bio,omitempty"`
	GuildID        *string   `json:"guildId,omitempty"`
	AchievementIDs *[]string `json:"achievementIds,omitempty"`
	ArticleIDs     *[]string `json:"articleIds,omitempty"`
	Fingerprint    *string   `json:"fingerprint,omitempty"`
	IsPublic       *bool     `json:"isPublic,omitempty"`

	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Apply writes the non-nil patch fields onto the identity
func (p IdentityPatch) Apply(i *Identity) {
	setString(&i.PasswordHash, p.PasswordHash)
	setBool(&i.IsAdmin, p.IsAdmin)
	if p.AdminRole != nil {
		i.AdminRole = *p.AdminRole
	}
	setString(&i.IGN, p.IGN)
	setString(&i.Name, p.Name)
	setString(&i.Nickname, p.Nickname)
	setString(&i.Title, p.Title)
	setString(&i.AvatarImage, p.AvatarImage)
	if p.Rating != nil {
		i.Rating = *p.Rating
	}
	setString(&i.Rank, p.Rank)
	setString(&i.Trophy, p.Trophy)
	setString(&i.Age, p.Age)
	setString(&i.Motto, p.Motto)
	setString(&i.Joined, p.Joined)
	setString(&i.Bio, p.Bio)
	setString(&i.GuildID, p.GuildID)
	if p.AchievementIDs != nil {
		i.AchievementIDs = append([]string(nil), (*p.AchievementIDs)...)
	}
	if p.ArticleIDs != nil {
		i.ArticleIDs = append([]string(nil), (*p.ArticleIDs)...)
	}
	setString(&i.Fingerprint, p.Fingerprint)
	setBool(&i.IsPublic, p.IsPublic)
	if p.UpdatedAt != nil {
		i.UpdatedAt = *p.UpdatedAt
	}
}

// ProfileOnly drops the security fields, keeping only what a profile edit may touch
func (p IdentityPatch) ProfileOnly() IdentityPatch {
	p.PasswordHash = nil
	p.IsAdmin = nil
	p.AdminRole = nil
	return p
}

// IsEmpty reports whether the patch changes nothing
func (p IdentityPatch) IsEmpty() bool {
	return p == IdentityPatch{}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
