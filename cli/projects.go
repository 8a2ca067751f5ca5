package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpupo63/showcase-backend/models"
	"github.com/rpupo63/showcase-backend/services"
)

func newProjectsCmd(open commandOpener) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage your projects",
		Long: `Manage the projects of the signed-in user.

Examples:
  # List your projects
  showcase projects list

  # Browse the public catalog
  showcase projects list --public

  # Create a private project and publish it
  showcase projects create --name "Portfolio" --description "My site" --tech Next.js,Tailwind
  showcase projects publish <id>`,
	}
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output results as JSON")

	cmd.AddCommand(
		newProjectsListCmd(open, &outputJSON),
		newProjectsShowCmd(open, &outputJSON),
		newProjectsCreateCmd(open, &outputJSON),
		newProjectsVisibilityCmd(open, "publish", true),
		newProjectsVisibilityCmd(open, "unpublish", false),
		newProjectsDeleteCmd(open),
	)
	return cmd
}

func newProjectsListCmd(open commandOpener, outputJSON *bool) *cobra.Command {
	var public bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your projects, or the public catalog with --public",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()
			svc := services.NewProjectService(a.db)

			var projects []*models.Project
			if public {
				projects, err = svc.ListPublic(cmd.Context())
			} else {
				ctx, m, serr := a.signedIn(cmd.Context())
				if serr != nil {
					return serr
				}
				defer m.Close()
				projects, err = svc.ListOwn(ctx)
			}
			if err != nil {
				return err
			}

			if *outputJSON {
				return writeJSON(cmd.OutOrStdout(), projects)
			}
			writeProjectTable(cmd.OutOrStdout(), projects)
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "list the public catalog instead of your projects")
	return cmd
}

func newProjectsShowCmd(open commandOpener, outputJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one of your projects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, m, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			p, err := services.NewProjectService(a.db).GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			if *outputJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			writeProject(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newProjectsCreateCmd(open commandOpener, outputJSON *bool) *cobra.Command {
	var (
		name, description, content, image string
		category, framework, css, db      string
		repoURL, demoURL, downloadURL     string
		tech                              []string
		public, featured                  bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, m, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			in := models.ProjectInput{
				Name:        &name,
				Description: &description,
				TechStack:   &tech,
				IsPublic:    &public,
				Featured:    &featured,
			}
			flags := cmd.Flags()
			set := func(flag string, v *string, dst **string) {
				if flags.Changed(flag) {
					*dst = v
				}
			}
			set("content", &content, &in.Content)
			set("image", &image, &in.Image)
			set("framework", &framework, &in.Framework)
			set("css", &css, &in.CSS)
			set("database", &db, &in.Database)
			set("repo", &repoURL, &in.RepoURL)
			set("demo", &demoURL, &in.DemoURL)
			set("download", &downloadURL, &in.DownloadURL)
			if flags.Changed("category") {
				c := models.Category(category)
				in.Category = &c
			}
			if flags.Changed("download") {
				downloadable := downloadURL != ""
				in.IsDownloadable = &downloadable
			}

			p, err := services.NewProjectService(a.db).Create(ctx, in)
			if err != nil {
				return err
			}
			if *outputJSON {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "project name (required)")
	f.StringVar(&description, "description", "", "short description (required)")
	f.StringVar(&content, "content", "", "long-form content")
	f.StringVar(&image, "image", "", "cover image URL")
	f.StringVar(&category, "category", "", "AI, Starter, Ecommerce, SaaS, Blog, Portfolio or Other")
	f.StringSliceVar(&tech, "tech", nil, "tech stack, comma separated")
	f.StringVar(&framework, "framework", "", "framework")
	f.StringVar(&css, "css", "", "CSS solution")
	f.StringVar(&db, "database", "", "database")
	f.StringVar(&repoURL, "repo", "", "repository URL")
	f.StringVar(&demoURL, "demo", "", "live demo URL")
	f.StringVar(&downloadURL, "download", "", "download URL")
	f.BoolVar(&public, "public", false, "publish immediately")
	f.BoolVar(&featured, "featured", false, "feature on the home page")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newProjectsVisibilityCmd(open commandOpener, verb string, public bool) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " <id>",
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, m, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			p, err := services.NewProjectService(a.db).TogglePublic(ctx, args[0], public)
			if err != nil {
				return err
			}
			state := "private"
			if p.IsPublic {
				state = "public"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", p.Name, state)
			return nil
		},
	}
}

func newProjectsDeleteCmd(open commandOpener) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, m, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			svc := services.NewProjectService(a.db)
			p, err := svc.GetByID(ctx, args[0])
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete %q? This cannot be undone. [y/N] ", p.Name)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
			if err := svc.Delete(ctx, p.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", p.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeProjectTable(w io.Writer, projects []*models.Project) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tVISIBILITY\tCREATED")
	for _, p := range projects {
		visibility := "private"
		if p.IsPublic {
			visibility = "public"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, visibility, p.CreatedAt.Format("2006-01-02"))
	}
	tw.Flush()
}

func writeProject(w io.Writer, p *models.Project) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "  %s\n", p.Description)
	fmt.Fprintf(w, "  category:   %s\n", p.Category)
	if len(p.TechStack) > 0 {
		fmt.Fprintf(w, "  tech:       %s\n", strings.Join(p.TechStack, ", "))
	}
	fmt.Fprintf(w, "  public:     %t\n", p.IsPublic)
	fmt.Fprintf(w, "  featured:   %t\n", p.Featured)
	if p.RepoURL != "" {
		fmt.Fprintf(w, "  repo:       %s\n", p.RepoURL)
	}
	if p.DemoURL != "" {
		fmt.Fprintf(w, "  demo:       %s\n", p.DemoURL)
	}
}
