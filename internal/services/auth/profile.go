package auth

import (
	"context"

	"github.com/redskie/bamaco/internal/model"
)

// DefaultIGN is used when registration supplies no in-game name
const DefaultIGN = "Unknown"

// ExternalProfile is the player data registration copies onto a new identity
type ExternalProfile struct {
	IGN         string `json:"ign"`
	Title       string `json:"title,omitempty"`
	AvatarImage string `json:"avatarImage,omitempty"`
	Rating      int    `json:"rating"`
	Trophy      string `json:"trophy,omitempty"`
}

// ProfileLookup fetches a player's game profile by friend code
type ProfileLookup interface {
	Lookup(ctx context.Context, fc model.FriendCode) (ExternalProfile, error)
}

// StaticProfile answers every lookup with itself
type StaticProfile ExternalProfile

// Lookup returns the static profile
func (p StaticProfile) Lookup(context.Context, model.FriendCode) (ExternalProfile, error) {
	return ExternalProfile(p), nil
}

// newIdentity builds the record registration creates
func newIdentity(fc model.FriendCode, hash, editKey string, p ExternalProfile) *model.Identity {
	ign := p.IGN
	if ign == "" {
		ign = DefaultIGN
	}
	title := p.Title
	if title == "" {
		title = p.Trophy
	}
	return &model.Identity{
		FriendCode:     fc,
		PasswordHash:   hash,
		EditKey:        editKey,
		IGN:            ign,
		Name:           ign,
		Nickname:       ign,
		Title:          title,
		AvatarImage:    p.AvatarImage,
		Rating:         p.Rating,
		Trophy:         p.Trophy,
		AchievementIDs: []string{},
		ArticleIDs:     []string{},
		IsPublic:       true,
	}
}
