package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/redskie/bamaco/internal/factory"
	"github.com/redskie/bamaco/internal/model"
)

var errNotLoggedIn = errors.New("not logged in, run 'bamaco login' first")

// profileFlags are the editable profile fields
type profileFlags struct {
	ign, name, nickname, title, avatar string
	rank, trophy, age, motto, joined   string
	bio, guild                         string
	rating                             int
	public                             bool
}

func (p *profileFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&p.ign, "ign", "", "in-game name")
	fs.StringVar(&p.name, "name", "", "real name")
	fs.StringVar(&p.nickname, "nickname", "", "nickname")
	fs.StringVar(&p.title, "title", "", "title")
	fs.StringVar(&p.avatar, "avatar", "", "avatar image URL")
	fs.StringVar(&p.rank, "rank", "", "rank")
	fs.StringVar(&p.trophy, "trophy", "", "trophy")
	fs.StringVar(&p.age, "age", "", "age")
	fs.StringVar(&p.motto, "motto", "", "motto")
	fs.StringVar(&p.joined, "joined", "", "date joined")
	fs.StringVar(&p.bio, "bio", "", "biography")
	fs.StringVar(&p.guild, "guild", "", "guild ID")
	fs.IntVar(&p.rating, "rating", 0, "rating")
	fs.BoolVar(&p.public, "public", true, "show the profile in listings")
}

// patch includes only the flags given on the command line
func (p *profileFlags) patch(fs *pflag.FlagSet) model.IdentityPatch {
	var patch model.IdentityPatch
	str := func(flag string, v string) *string {
		if fs.Changed(flag) {
			return &v
		}
		return nil
	}
	patch.IGN = str("ign", p.ign)
	patch.Name = str("name", p.name)
	patch.Nickname = str("nickname", p.nickname)
	patch.Title = str("title", p.title)
	patch.AvatarImage = str("avatar", p.avatar)
	patch.Rank = str("rank", p.rank)
	patch.Trophy = str("trophy", p.trophy)
	patch.Age = str("age", p.age)
	patch.Motto = str("motto", p.motto)
	patch.Joined = str("joined", p.joined)
	patch.Bio = str("bio", p.bio)
	patch.GuildID = str("guild", p.guild)
	if fs.Changed("rating") {
		rating := p.rating
		patch.Rating = &rating
	}
	if fs.Changed("public") {
		public := p.public
		patch.IsPublic = &public
	}
	return patch
}

func (p *profileFlags) identity(fc model.FriendCode) *model.Identity {
	return &model.Identity{
		FriendCode:  fc,
		IGN:         p.ign,
		Name:        p.name,
		Nickname:    p.nickname,
		Title:       p.title,
		AvatarImage: p.avatar,
		Rating:      p.rating,
		Rank:        p.rank,
		Trophy:      p.trophy,
		Age:         p.age,
		Motto:       p.motto,
		Joined:      p.joined,
		Bio:         p.bio,
		GuildID:     p.guild,
		IsPublic:    p.public,
	}
}

// readPassword returns flag, or the first line of stdin when flag is empty
func readPassword(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("a password is required: pass --password or pipe it on stdin")
	}
	return pw, nil
}

func newProfileCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your own profile",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			user := app.Auth.User()
			if user == nil {
				return errNotLoggedIn
			}
			p, err := app.Players.Get(cmd.Context(), user.FriendCode)
			if err != nil {
				return err
			}
			rt.out.Print(p)
			return nil
		}),
	})

	var flags profileFlags
	update := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		Long: `Update fields of your own profile. Only the flags you pass are written.
Security fields (password, admin status) cannot be changed here.`,
		Args: cobra.NoArgs,
		RunE: rt.withApp(func(cmd *cobra.Command, args []string, app *factory.App) error {
			patch := flags.patch(cmd.Flags())
			if patch.IsEmpty() {
				return errors.New("nothing to update: pass at least one field flag")
			}
			p, err := app.Auth.UpdateProfile(cmd.Context(), patch)
			if err != nil {
				return err
			}
			rt.out.Print(p.Public())
			return nil
		}),
	}
	flags.bind(update.Flags())
	cmd.AddCommand(update)

	return cmd
}
