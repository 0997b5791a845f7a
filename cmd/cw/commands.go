package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"casework/internal/config"
	"casework/internal/domain"
	"casework/internal/engine"
	"casework/internal/events"
	"casework/internal/repo"
	"casework/internal/wizard"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create casework.yml and .env in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			if err := setEnvValue(filepath.Join(workspace, ".env"), "CASEWORK_ACTOR_ID", actorID()); err != nil {
				return err
			}
			fmt.Printf("Wrote %s and set CASEWORK_ACTOR_ID=%s in %s/.env\n", path, actorID(), workspace)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing casework.yml")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect and import application config",
		Long:  "The application config (statuses, messages, report formatting, roles) lives in the database. casework.yml seeds it on first use; later changes go through 'cw config import'.",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configImportCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if viper.GetBool("json") {
					return printJSON(e.Config)
				}
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(e.Config)
			})
		},
	}
}

func configValidateCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a YAML config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if filePath == "" {
				filePath = config.Path(viper.GetString("workspace"))
			}
			if _, err := config.FromFile(filePath); err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"valid": true, "file": filePath})
			}
			fmt.Printf("%s is valid\n", filePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config (default <workspace>/casework.yml)")
	return cmd
}

func configImportCmd() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the stored config with a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromFile(filePath)
			if err != nil {
				return err
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				tx, err := r.DB.BeginTx(ctx, nil)
				if err != nil {
					return err
				}
				defer tx.Rollback()
				if err := r.UpsertConfigTx(ctx, tx, cfg); err != nil {
					return err
				}
				w := events.Writer{Dialect: r.Dialect}
				if err := w.Append(ctx, tx, events.ConfigImported, "config", "", actorID(), events.EventPayload{"file": filepath.Base(filePath)}); err != nil {
					return err
				}
				if err := tx.Commit(); err != nil {
					return err
				}
				fmt.Printf("Imported %s\n", filePath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "path to YAML config")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.DashboardStats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(stats, func(tw table.Writer) {
					tw.SetTitle(e.Config.Organization.Name)
					tw.AppendHeader(table.Row{"Indicador", "Total"})
					tw.AppendRows([]table.Row{
						{"Famílias cadastradas", stats.TotalFamilies},
						{"Famílias pendentes", stats.PendingFamilies},
						{"Famílias ativas", stats.ActiveFamilies},
						{"Casos urgentes", stats.UrgentCases},
						{"Visitas agendadas", stats.ScheduledVisits},
						{"Visitas realizadas (mês)", stats.CompletedVisits},
						{"Tarefas pendentes", stats.PendingTasks},
						{"Tarefas concluídas (mês)", stats.CompletedTasks},
						{"Cadastros no mês", stats.MonthlyRegistrations},
					})
				})
			})
		},
	}
}

func familyCmd() *cobra.Command {
	fam := &cobra.Command{Use: "family", Short: "Manage families"}
	fam.AddCommand(familyListCmd())
	fam.AddCommand(familyShowCmd())
	fam.AddCommand(familyRegisterCmd())
	fam.AddCommand(familyStatusCmd())
	fam.AddCommand(familyAssignCmd())
	fam.AddCommand(familyAttendCmd())
	return fam
}

func familyListCmd() *cobra.Command {
	var q engine.FamilyQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List families",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				families, err := e.ListFamilies(ctx, q)
				if err != nil {
					return err
				}
				return printJSONOrTable(families, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"Code", "Responsible", "Neighborhood", "Status", "Urgency", "Assigned"})
					for _, f := range families {
						tw.AppendRow(table.Row{f.PublicCode, f.ResponsibleName, f.Neighborhood, engine.StatusLabel(f.Status), engine.StatusLabel(f.UrgencyLevel), f.AssignedUserName})
					}
					tw.AppendFooter(table.Row{"", "", "", "", "Total", len(families)})
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "match name, code, neighborhood or city")
	cmd.Flags().StringVar(&q.Status, "status", "all", "status filter")
	cmd.Flags().StringVar(&q.Urgency, "urgency", "all", "urgency filter")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum rows")
	return cmd
}

func familyShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show a family with members, visits and tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.GetFamily(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(d, func(tw table.Writer) {
					tw.SetTitle(d.PublicCode + " - " + d.ResponsibleName)
					tw.AppendRow(table.Row{"Status", engine.StatusLabel(d.Status)})
					tw.AppendRow(table.Row{"Urgência", engine.StatusLabel(d.UrgencyLevel)})
					tw.AppendRow(table.Row{"Endereço", d.Street + ", " + deref(d.AddressNumber) + " - " + d.Neighborhood + ", " + d.City})
					tw.AppendRow(table.Row{"Telefone", deref(d.Phone)})
					tw.AppendRow(table.Row{"Email", deref(d.Email)})
					tw.AppendSeparator()
					for _, m := range d.Members {
						age := "-"
						if m.Age != nil {
							age = fmt.Sprint(*m.Age)
						}
						tw.AppendRow(table.Row{"Membro", fmt.Sprintf("%s (%s, %s)", m.Name, m.Kinship, age)})
					}
					for _, v := range d.Visits {
						tw.AppendRow(table.Row{"Visita", v.ScheduledAt + " " + v.Title + " [" + engine.StatusLabel(v.Status) + "]"})
					}
					for _, t := range d.Tasks {
						tw.AppendRow(table.Row{"Tarefa", t.Title + " [" + engine.StatusLabel(t.Status) + "]"})
					}
				})
			})
		},
	}
}

// parseMember reads "name:kinship:age"; trailing parts are optional.
func parseMember(s string) domain.MemberInput {
	parts := strings.SplitN(s, ":", 3)
	m := domain.MemberInput{Name: parts[0]}
	if len(parts) > 1 {
		m.Kinship = parts[1]
	}
	if len(parts) > 2 {
		m.Age = parts[2]
	}
	return m
}

func familyRegisterCmd() *cobra.Command {
	var fields map[string]string
	var members []string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a family the way the public wizard does",
		Example: `  cw family register --set responsible_name="Maria Silva" --set street="Rua A" \
    --set neighborhood=Centro --set city=Recife --member "Pedro:Filho:9"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				state := wizard.State{Step: wizard.StepFinal}
				for _, m := range members {
					state.Members = append(state.Members, parseMember(m))
				}
				w, err := wizard.Restore(state, wizard.Options{
					SuccessMessage: e.Config.Registration.SuccessMessage,
					FailureMessage: e.Config.Registration.FailureMessage,
					Logger:         logger,
				})
				if err != nil {
					return err
				}
				if err := w.SetFields(fields); err != nil {
					return err
				}
				res := w.Submit(ctx, e)
				if viper.GetBool("json") {
					if err := printJSON(res); err != nil {
						return err
					}
				}
				if !res.Success {
					return errors.New(res.Error)
				}
				if !viper.GetBool("json") {
					fmt.Printf("%s\nCódigo: %s\n", res.Message, res.Code)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringToStringVar(&fields, "set", nil, "form field key=value (repeatable)")
	cmd.Flags().StringArrayVar(&members, "member", nil, "member as name:kinship:age (repeatable)")
	return cmd
}

func familyStatusCmd() *cobra.Command {
	var urgency string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change case status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var u *string
				if urgency != "" {
					u = &urgency
				}
				f, err := e.UpdateFamilyStatus(ctx, args[0], strings.ToUpper(args[1]), u, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(f, func(tw table.Writer) {
					tw.AppendRow(table.Row{f.PublicCode, engine.StatusLabel(f.Status), engine.StatusLabel(f.UrgencyLevel)})
				})
			})
		},
	}
	cmd.Flags().StringVar(&urgency, "urgency", "", "also set the urgency level")
	return cmd
}

func familyAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> [user-id]",
		Short: "Assign a family to a caseworker (omit user to unassign)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				userID := ""
				if len(args) == 2 {
					userID = args[1]
				}
				f, err := e.AssignFamily(ctx, args[0], userID, actorID())
				if err != nil {
					return err
				}
				return printJSONOrTable(f, func(tw table.Writer) {
					tw.AppendRow(table.Row{f.PublicCode, f.AssignedUserName})
				})
			})
		},
	}
}

func familyAttendCmd() *cobra.Command {
	var opts engine.AttendanceOptions
	cmd := &cobra.Command{
		Use:   "attend <id>",
		Short: "Log an attendance entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts.FamilyID = args[0]
				a, err := e.AddAttendance(ctx, opts, actorID())
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Description, "description", "", "what was done")
	cmd.Flags().StringVar(&opts.Urgency, "urgency", "", "urgency observed")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "free notes")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func visitCmd() *cobra.Command {
	v := &cobra.Command{Use: "visit", Short: "Manage visits"}
	v.AddCommand(visitListCmd())
	v.AddCommand(visitCreateCmd())
	v.AddCommand(visitStatusCmd())
	return v
}

func visitListCmd() *cobra.Command {
	var q engine.VisitQuery
	var upcoming bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visits",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var visits []domain.Visit
				var err error
				if upcoming {
					visits, err = e.UpcomingVisits(ctx)
				} else {
					visits, err = e.ListVisits(ctx, q)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(visits, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Scheduled", "Title", "Family", "Type", "Status"})
					for _, v := range visits {
						family := ""
						if v.Family != nil {
							family = v.Family.PublicCode + " " + v.Family.ResponsibleName
						}
						tw.AppendRow(table.Row{v.ID, v.ScheduledAt, v.Title, family, engine.StatusLabel(v.VisitType), engine.StatusLabel(v.Status)})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "match title, family name or code")
	cmd.Flags().StringVar(&q.Status, "status", "all", "status filter")
	cmd.Flags().StringVar(&q.Type, "type", "all", "visit type filter")
	cmd.Flags().BoolVar(&upcoming, "upcoming", false, "only the next scheduled visits")
	return cmd
}

func visitCreateCmd() *cobra.Command {
	var opts engine.VisitCreateOptions
	var at string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a visit",
		RunE: func(cmd *cobra.Command, args []string) error {
			scheduled, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("invalid --at %q: use RFC3339, e.g. 2024-12-10T14:00:00Z", at)
			}
			opts.ScheduledAt = scheduled
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.CreateVisit(ctx, opts, actorID())
				if err != nil {
					return err
				}
				return printJSON(v)
			})
		},
	}
	cmd.Flags().StringVar(&opts.FamilyID, "family", "", "family id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "visit title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.VisitType, "type", "", "HOME_VISIT, OFFICE_VISIT, PHONE_CALL or OTHER")
	cmd.Flags().StringVar(&at, "at", "", "scheduled time (RFC3339)")
	cmd.Flags().StringVar(&opts.AssignedTo, "assign", "", "user id")
	_ = cmd.MarkFlagRequired("family")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func visitStatusCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change visit status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var n *string
				if cmd.Flags().Changed("notes") {
					n = &notes
				}
				v, err := e.UpdateVisitStatus(ctx, args[0], strings.ToUpper(args[1]), n, actorID())
				if err != nil {
					return err
				}
				return printJSON(v)
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "visit notes")
	return cmd
}

func taskCmd() *cobra.Command {
	t := &cobra.Command{Use: "task", Short: "Manage tasks"}
	t.AddCommand(taskListCmd())
	t.AddCommand(taskCreateCmd())
	t.AddCommand(taskStatusCmd())
	return t
}

func taskListCmd() *cobra.Command {
	var q engine.TaskQuery
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var tasks []domain.Task
				var err error
				if pending {
					tasks, err = e.PendingTasks(ctx)
				} else {
					tasks, err = e.ListTasks(ctx, q)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(tasks, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Status", "Due", "Assigned"})
					for _, t := range tasks {
						tw.AppendRow(table.Row{t.ID, t.Title, engine.StatusLabel(t.Priority), engine.StatusLabel(t.Status), deref(t.DueDate), t.AssignedUserName})
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&q.Search, "search", "", "match title, description or family name")
	cmd.Flags().StringVar(&q.Status, "status", "all", "status filter")
	cmd.Flags().StringVar(&q.Priority, "priority", "all", "priority filter")
	cmd.Flags().BoolVar(&pending, "pending", false, "only open tasks, most urgent first")
	return cmd
}

func taskCreateCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts, actorID())
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.FamilyID, "family", "", "family id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "LOW, MEDIUM, HIGH or URGENT")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.AssignedTo, "assign", "", "user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change task status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTaskStatus(ctx, args[0], strings.ToUpper(args[1]), actorID())
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage caseworkers"}
	u.AddCommand(userListCmd())
	u.AddCommand(userCreateCmd())
	u.AddCommand(userAPIKeyCmd())
	return u
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.ActiveUsers(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(users, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role"})
					for _, u := range users {
						tw.AppendRow(table.Row{u.ID, u.Name, u.Email, u.Role})
					}
				})
			})
		},
	}
}

func userCreateCmd() *cobra.Command {
	var u domain.User
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				created, err := e.CreateUser(ctx, u, actorID())
				if err != nil {
					return err
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&u.ID, "id", "", "user id (generated when empty)")
	cmd.Flags().StringVar(&u.Name, "name", "", "full name")
	cmd.Flags().StringVar(&u.Email, "email", "", "email")
	cmd.Flags().StringVar(&u.Role, "role", "", "ADMIN, COORDINATOR or VOLUNTEER")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func userAPIKeyCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "api-key <user-id>",
		Short: "Issue an API key (shown once)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, plain, err := e.CreateAPIKey(ctx, args[0], name, actorID())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "user_id": key.UserID, "key": plain})
				}
				fmt.Printf("API key for %s: %s\nStore it now; it cannot be shown again.\n", key.UserID, plain)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

func reportCmd() *cobra.Command {
	var outDir string
	rep := &cobra.Command{
		Use:   "report",
		Short: "Generate PDF and CSV reports",
	}
	rep.PersistentFlags().StringVarP(&outDir, "out", "o", ".", "output directory")

	write := func(doc engine.Document) error {
		path := filepath.Join(outDir, doc.Filename)
		if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
			return err
		}
		if viper.GetBool("json") {
			return printJSON(map[string]any{"file": path, "bytes": len(doc.Body)})
		}
		fmt.Println(path)
		return nil
	}
	run := func(gen func(ctx context.Context, e engine.Engine) (engine.Document, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				doc, err := gen(ctx, e)
				if err != nil {
					return err
				}
				return write(doc)
			})
		}
	}

	var format string
	families := &cobra.Command{
		Use:   "families",
		Short: "Family list",
		RunE: run(func(ctx context.Context, e engine.Engine) (engine.Document, error) {
			switch format {
			case "pdf":
				return e.ExportFamiliesPDF(ctx, actorID())
			case "csv":
				return e.ExportFamiliesCSV(ctx, actorID())
			}
			return engine.Document{}, fmt.Errorf("unknown format %q (pdf or csv)", format)
		}),
	}
	families.Flags().StringVar(&format, "format", "pdf", "pdf or csv")

	var start, end string
	visits := &cobra.Command{
		Use:   "visits",
		Short: "Visits scheduled in a date range",
		RunE: run(func(ctx context.Context, e engine.Engine) (engine.Document, error) {
			from, err := time.Parse("2006-01-02", start)
			if err != nil {
				return engine.Document{}, fmt.Errorf("invalid --start %q", start)
			}
			to, err := time.Parse("2006-01-02", end)
			if err != nil {
				return engine.Document{}, fmt.Errorf("invalid --end %q", end)
			}
			return e.ExportVisits(ctx, from, to, actorID())
		}),
	}
	visits.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	visits.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	_ = visits.MarkFlagRequired("start")
	_ = visits.MarkFlagRequired("end")

	statistics := &cobra.Command{
		Use:   "statistics",
		Short: "Statistics summary",
		RunE: run(func(ctx context.Context, e engine.Engine) (engine.Document, error) {
			return e.ExportStatistics(ctx, actorID())
		}),
	}

	var familyID string
	family := &cobra.Command{
		Use:   "family <id|code>",
		Short: "Registration sheet of one family",
		Args:  cobra.ExactArgs(1),
		PreRun: func(cmd *cobra.Command, args []string) {
			familyID = args[0]
		},
		RunE: run(func(ctx context.Context, e engine.Engine) (engine.Document, error) {
			return e.ExportFamily(ctx, familyID, actorID())
		}),
	}

	rep.AddCommand(families, visits, statistics, family)
	return rep
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Audit log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				evts, err := r.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(evts, func(tw table.Writer) {
					tw.AppendHeader(table.Row{"ID", "When", "Type", "Entity", "Actor", "Payload"})
					for _, ev := range evts {
						tw.AppendRow(table.Row{ev.ID, ev.TS, ev.Type, ev.EntityKind + ":" + ev.EntityID, ev.ActorID, ev.Payload})
					}
				})
			})
		},
	}
	cmd.Flags().IntVarP(&f.Limit, "n", "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	cmd.Flags().Int64Var(&f.Before, "before", 0, "page back from this event id")
	return cmd
}

// setEnvValue sets key in a dotenv file, keeping other lines.
func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, key+"="+value)
				seen = true
				continue
			}
			lines = append(lines, line)
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, key+"="+value)
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644)
}
