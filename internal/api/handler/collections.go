package handler

import (
	"net/http"

	"github.com/redskie/bamaco/internal/api/response"
	"github.com/redskie/bamaco/internal/model"
)

// Guilds

func (h *Handler) GetGuild(w http.ResponseWriter, r *http.Request) {
	getOne(w, r, h.store.GetGuild)
}

func (h *Handler) ListGuilds(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListGuilds)
}

// CreateGuild handles POST /api/v1/guilds. An existing id answers 409.
func (h *Handler) CreateGuild(w http.ResponseWriter, r *http.Request) {
	var guild model.Guild
	if err := decode(w, r, &guild); err != nil {
		WriteError(w, err)
		return
	}
	if guild.ID == "" {
		WriteError(w, NewInvalidRequestError("guild id is required"))
		return
	}
	if guild.Members == nil {
		guild.Members = []string{}
	}
	if err := h.store.CreateGuild(r.Context(), &guild); err != nil {
		WriteError(w, err)
		return
	}
	h.publish(model.CollectionGuilds, guild.ID, model.OpCreated)
	response.JSON(w, http.StatusCreated, &guild)
}

func (h *Handler) PutGuild(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionGuilds, func(g *model.Guild, id string) {
		g.ID = id
		if g.Members == nil {
			g.Members = []string{}
		}
	}, h.store.SaveGuild)
}

func (h *Handler) DeleteGuild(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, model.CollectionGuilds, h.store.DeleteGuild)
}

// Achievements

func (h *Handler) GetAchievement(w http.ResponseWriter, r *http.Request) {
	getOne(w, r, h.store.GetAchievement)
}

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListAchievements)
}

func (h *Handler) PutAchievement(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionAchievements, func(a *model.Achievement, id string) {
		a.ID = id
	}, h.store.SaveAchievement)
}

func (h *Handler) DeleteAchievement(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, model.CollectionAchievements, h.store.DeleteAchievement)
}

// Articles

func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	getOne(w, r, h.store.GetArticle)
}

func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	listAll(w, r, h.store.ListArticles)
}

func (h *Handler) PutArticle(w http.ResponseWriter, r *http.Request) {
	putOne(h, w, r, model.CollectionArticles, func(a *model.Article, id string) {
		a.ID = id
		if a.Tags == nil {
			a.Tags = []string{}
		}
	}, h.store.SaveArticle)
}

func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	deleteOne(h, w, r, model.CollectionArticles, h.store.DeleteArticle)
}
