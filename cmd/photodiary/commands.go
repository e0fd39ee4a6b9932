package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/photodiary/internal/calendar"
	"github.com/MarcoPoloResearchLab/photodiary/internal/ceremony"
	"github.com/MarcoPoloResearchLab/photodiary/internal/config"
	"github.com/MarcoPoloResearchLab/photodiary/internal/fakeserver"
	"github.com/MarcoPoloResearchLab/photodiary/internal/logging"
	"github.com/MarcoPoloResearchLab/photodiary/internal/photos"
	"github.com/MarcoPoloResearchLab/photodiary/internal/session"
	"github.com/MarcoPoloResearchLab/photodiary/internal/view"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// withApp builds the application for a command and tears it down afterwards.
func withApp(run func(cmd *cobra.Command, args []string, application *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.close()
		return run(cmd, args, application)
	}
}

func newRegisterCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a passkey for the configured username",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			username := application.config.Username
			if err := ceremony.Register(cmd.Context(), application.ceremonies, application.authenticator, username, application.logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Registration successful! You can now login.")
			return nil
		}),
	}
}

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with the stored passkey and keep the session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			username := application.config.Username
			if err := ceremony.Login(cmd.Context(), application.ceremonies, application.authenticator, username, application.logger); err != nil {
				return err
			}
			if err := application.saveSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Login successful!")
			return nil
		}),
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			return application.sessions.Delete(cmd.Context(), application.config.BaseURL)
		}),
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the stored session is accepted by the server",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			authenticated, err := application.photos.AuthStatus(cmd.Context())
			if err != nil {
				return err
			}
			if !authenticated {
				fmt.Fprintln(cmd.OutOrStdout(), "not authenticated")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "authenticated")
			if stored, err := application.sessions.Load(cmd.Context(), application.config.BaseURL); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), describeSession(stored.Token))
			}
			return nil
		}),
	}
}

func describeSession(token string) string {
	claims, err := session.Inspect(token)
	if err != nil || claims.Opaque {
		return "session: opaque token"
	}
	description := "session: " + claims.Subject
	if !claims.ExpiresAt.IsZero() {
		description += ", expires " + claims.ExpiresAt.Format(time.RFC3339)
	}
	return description
}

func newPhotosCommand() *cobra.Command {
	photosCmd := &cobra.Command{
		Use:   "photos",
		Short: "Work with diary entries",
	}
	var offline bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List every entry, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			records, err := application.records(cmd.Context(), offline)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), view.NewRenderer(view.DefaultTheme).List(records))
			return nil
		}),
	}
	listCmd.Flags().BoolVar(&offline, "offline", false, "Read the local cache instead of the server")
	photosCmd.AddCommand(listCmd)
	return photosCmd
}

func newGalleryCommand() *cobra.Command {
	var (
		month   string
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "gallery",
		Short: "Show a month of the diary as a calendar",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, _ []string, application *app) error {
			records, err := application.records(cmd.Context(), offline)
			if err != nil {
				return err
			}
			gallery := calendar.NewGallery(records)
			current, ok := gallery.Current()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No photos yet.")
				return nil
			}
			if month != "" {
				if _, err := calendar.ParseMonth(month); err != nil {
					return err
				}
				if !gallery.Seek(month) {
					return fmt.Errorf("no photos in %s", month)
				}
				current = month
			}
			cells, err := gallery.Grid()
			if err != nil {
				return err
			}
			rendered, err := view.NewRenderer(view.DefaultTheme).Month(current, cells, neighbourMonths(gallery))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return nil
		}),
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to show as YYYY-MM (defaults to the newest)")
	cmd.Flags().BoolVar(&offline, "offline", false, "Read the local cache instead of the server")
	return cmd
}

func neighbourMonths(gallery *calendar.Gallery) view.MonthNavigation {
	months := gallery.Months()
	index := gallery.Index()
	var navigation view.MonthNavigation
	if gallery.HasNewer() {
		navigation.Newer = months[calendar.AdjacentMonthIndex(index, calendar.Newer, len(months))]
	}
	if gallery.HasOlder() {
		navigation.Older = months[calendar.AdjacentMonthIndex(index, calendar.Older, len(months))]
	}
	return navigation
}

func newShowCommand() *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "show <day>",
		Short: "Show the entry for a day (YYYY-MM-DD)",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, application *app) error {
			day := args[0]
			if _, err := photos.ParseDay(day); err != nil {
				return err
			}
			records, err := application.records(cmd.Context(), offline)
			if err != nil {
				return err
			}
			record := calendar.FindDay(records, day)
			if record == nil {
				return fmt.Errorf("no photo on %s", day)
			}
			newer, _ := calendar.AdjacentDay(records, day, calendar.Newer)
			older, _ := calendar.AdjacentDay(records, day, calendar.Older)
			fmt.Fprintln(cmd.OutOrStdout(), view.NewRenderer(view.DefaultTheme).Detail(*record, newer, older))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Read the local cache instead of the server")
	return cmd
}

func newUploadCommand() *cobra.Command {
	var day, notes string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a photo for a day",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, args []string, application *app) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			confirmation, err := application.photos.Upload(cmd.Context(), photos.UploadRequest{
				Filename: file.Name(),
				Content:  file,
				Day:      day,
				Notes:    notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), confirmation)
			return nil
		}),
	}
	cmd.Flags().StringVar(&day, "day", "", "Diary day as YYYY-MM-DD (defaults to today, UTC)")
	cmd.Flags().StringVar(&notes, "notes", "", "Notes for the entry")
	return cmd
}

func newDevServerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory diary API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDevServer(cmd.Context())
		},
	}
}

func runDevServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	server, err := fakeserver.New(fakeserver.Config{Origin: appConfig.Origin, Logger: logger})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.DevServerAddress,
		Handler: server.Handler(),
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dev server starting",
			zap.String("address", appConfig.DevServerAddress),
			zap.String("origin", appConfig.Origin))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
