package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/redskie/bamaco/internal/model"
	"github.com/redskie/bamaco/internal/services/content"
	"github.com/redskie/bamaco/internal/services/players"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
	errW   io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w, errW io.Writer) *Output {
	return &Output{format: format, w: w, errW: errW}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	switch o.format {
	case "json":
		o.printJSON(o.w, data)
	case "yaml":
		o.printYAML(o.w, data)
	default:
		o.printText(data)
	}
}

// PrintError outputs the user-facing message for err
func (o *Output) PrintError(err error) {
	msg := Message(err)
	switch o.format {
	case "json":
		o.printJSON(o.errW, map[string]any{"error": map[string]string{"message": msg}})
	case "yaml":
		o.printYAML(o.errW, map[string]any{"error": map[string]string{"message": msg}})
	default:
		fmt.Fprintf(o.errW, "Error: %s\n", msg)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	switch o.format {
	case "json":
		o.printJSON(o.w, map[string]string{"message": msg})
	case "yaml":
		o.printYAML(o.w, map[string]string{"message": msg})
	default:
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(w io.Writer, data any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// printYAML goes through JSON so keys match the json tags
func (o *Output) printYAML(w io.Writer, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(o.errW, "Error: %s\n", err)
		return
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		fmt.Fprintf(o.errW, "Error: %s\n", err)
		return
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	_ = enc.Encode(generic)
	_ = enc.Close()
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case StatusView:
		o.printStatus(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
		fmt.Fprintf(o.w, "Server: %s\n", v.Server)
	case *model.Identity:
		o.printIdentity(v)
	case []*model.Identity:
		o.printIdentities(v)
	case players.Stats:
		fmt.Fprintf(o.w, "Players: %d\n", v.TotalPlayers)
		fmt.Fprintf(o.w, "Average rating: %d\n", v.AverageRating)
		fmt.Fprintf(o.w, "Top rating: %d\n", v.TopRating)
		fmt.Fprintf(o.w, "Active guilds: %d\n", v.ActiveGuilds)
	case *model.Guild:
		o.printGuild(v)
	case []*model.Guild:
		o.printGuilds(v)
	case *model.Achievement:
		o.printAchievements([]*model.Achievement{v})
	case []*model.Achievement:
		o.printAchievements(v)
	case *model.Article:
		o.printArticles([]*model.Article{v})
	case []*model.Article:
		o.printArticles(v)
	case content.Stats:
		o.printContentStats(v)
	case *model.QueueRequest:
		o.printRequests([]*model.QueueRequest{v})
	case []*model.QueueRequest:
		o.printRequests(v)
	case []*model.QueueEntry:
		o.printQueue(v)
	case []*model.Notification:
		o.printNotifications(v)
	case *model.Report:
		o.printReports([]*model.Report{v})
	case []*model.Report:
		o.printReports(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(o.w, data)
	}
}

// StatusView is the logged-in state as shown by whoami
type StatusView struct {
	State       string             `json:"state"`
	IsLoggedIn  bool               `json:"isLoggedIn"`
	User        *model.SessionUser `json:"user,omitempty"`
	IsAdmin     bool               `json:"isAdmin"`
	Guest       bool               `json:"guest"`
	Mode        string             `json:"mode"`
	PromptLogin bool               `json:"promptLogin"`
}

// HealthResult response type
type HealthResult struct {
	Status string `json:"status"`
	Server string `json:"server"`
}

func (o *Output) printStatus(s StatusView) {
	if s.IsLoggedIn && s.User != nil {
		fmt.Fprintf(o.w, "Logged in as %s (%s)\n", s.User.IGN, s.User.FriendCode)
		if s.IsAdmin {
			fmt.Fprintln(o.w, "Admin: yes")
		}
	} else if s.Guest {
		fmt.Fprintln(o.w, "Browsing as guest")
	} else {
		fmt.Fprintln(o.w, "Not logged in")
	}
	fmt.Fprintf(o.w, "Mode: %s\n", s.Mode)
	if s.PromptLogin {
		fmt.Fprintln(o.w, "Run 'bamaco login' or 'bamaco guest' to continue.")
	}
}

func (o *Output) table(header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(o.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func (o *Output) printIdentity(p *model.Identity) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.IGN, p.FriendCode)
	if p.Title != "" {
		fmt.Fprintf(o.w, "Title: %s\n", p.Title)
	}
	fmt.Fprintf(o.w, "Rating: %d\n", p.Rating)
	if p.Rank != "" {
		fmt.Fprintf(o.w, "Rank: %s\n", p.Rank)
	}
	if p.GuildID != "" {
		fmt.Fprintf(o.w, "Guild: %s\n", p.GuildID)
	}
	if p.Motto != "" {
		fmt.Fprintf(o.w, "Motto: %s\n", p.Motto)
	}
	if p.Bio != "" {
		fmt.Fprintf(o.w, "Bio: %s\n", p.Bio)
	}
	fmt.Fprintf(o.w, "Achievements: %d\n", len(p.AchievementIDs))
	fmt.Fprintf(o.w, "Articles: %d\n", len(p.ArticleIDs))
}

func (o *Output) printIdentities(list []*model.Identity) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No players found")
		return
	}
	o.table("FRIEND CODE\tIGN\tRATING\tTITLE\tGUILD", func(tw *tabwriter.Writer) {
		for _, p := range list {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.FriendCode, p.IGN, p.Rating, p.Title, p.GuildID)
		}
	})
}

func (o *Output) printGuild(g *model.Guild) {
	fmt.Fprintf(o.w, "Guild: %s (%s)\n", g.Name, g.ID)
	if g.Tag != "" {
		fmt.Fprintf(o.w, "Tag: %s\n", g.Tag)
	}
	if g.Motto != "" {
		fmt.Fprintf(o.w, "Motto: %s\n", g.Motto)
	}
	if g.Leader != "" {
		fmt.Fprintf(o.w, "Leader: %s\n", g.Leader)
	}
	fmt.Fprintf(o.w, "Members (%d): %s\n", len(g.Members), strings.Join(g.Members, ", "))
}

func (o *Output) printGuilds(list []*model.Guild) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No guilds found")
		return
	}
	o.table("ID\tNAME\tTAG\tLEADER\tMEMBERS", func(tw *tabwriter.Writer) {
		for _, g := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", g.ID, g.Name, g.Tag, g.Leader, len(g.Members))
		}
	})
}

func holder(a model.Assignment) string {
	if !a.Assigned() {
		return "-"
	}
	return string(a.AssignedTo)
}

func (o *Output) printAchievements(list []*model.Achievement) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No achievements found")
		return
	}
	o.table("ID\tTITLE\tCATEGORY\tRARITY\tPOINTS\tHOLDER", func(tw *tabwriter.Writer) {
		for _, a := range list {
			fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%d\t%s\n", a.ID, a.Icon, a.Title, a.Category, a.Rarity, a.Points, holder(a.Assignment))
		}
	})
}

func (o *Output) printArticles(list []*model.Article) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No articles found")
		return
	}
	o.table("ID\tTITLE\tCATEGORY\tPUBLISHED\tHOLDER", func(tw *tabwriter.Writer) {
		for _, a := range list {
			published := "no"
			if a.PublishedAt != nil {
				published = a.PublishedAt.Format(time.DateOnly)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Title, a.Category, published, holder(a.Assignment))
		}
	})
}

func (o *Output) printContentStats(s content.Stats) {
	fmt.Fprintf(o.w, "Total: %d\n", s.Total)
	fmt.Fprintf(o.w, "Assigned: %d\n", s.Assigned)
	fmt.Fprintf(o.w, "Available: %d\n", s.Available)
	if len(s.ByCategory) == 0 {
		return
	}
	fmt.Fprintln(o.w, "By category:")
	for _, name := range slices.Sorted(maps.Keys(s.ByCategory)) {
		fmt.Fprintf(o.w, "  %s: %d\n", name, s.ByCategory[name])
	}
}

func (o *Output) printRequests(list []*model.QueueRequest) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No queue requests")
		return
	}
	o.table("ID\tIGN\tFRIEND CODE\tSTATUS\tREQUESTED", func(tw *tabwriter.Writer) {
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.IGN, r.FriendCode, r.Status, r.RequestedAt.Format(time.DateTime))
		}
	})
}

func (o *Output) printQueue(list []*model.QueueEntry) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "The queue is empty")
		return
	}
	o.table("#\tNAME\tFRIEND CODE\tJOINED\tPAID", func(tw *tabwriter.Writer) {
		for i, e := range list {
			paid := "no"
			if e.Paid {
				paid = "yes"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, e.Name, e.FriendCode, e.JoinedAt.Format(time.DateTime), paid)
		}
	})
}

func (o *Output) printNotifications(list []*model.Notification) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No notifications")
		return
	}
	for _, n := range list {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Fprintf(o.w, "%s %s  %s  %s\n", mark, n.ID, n.CreatedAt.Format(time.DateTime), n.Message)
	}
}

func (o *Output) printReports(list []*model.Report) {
	if len(list) == 0 {
		fmt.Fprintln(o.w, "No reports")
		return
	}
	o.table("ID\tTYPE\tTITLE\tBY\tSTATUS", func(tw *tabwriter.Writer) {
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Type, r.Title, r.SubmittedBy, r.Status)
		}
	})
}
