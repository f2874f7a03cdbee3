package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nrenier/ICorNet-sub000/model"
	"github.com/nrenier/ICorNet-sub000/service"
)

var (
	loginUsername string
	loginPassword string

	registerReq model.RegisterRequest
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Open a session and store its cookie",
	Long: `Open a session on the dashboard API. The session cookie is stored in
the session file and reused by every other command.

The password is read from --password, then ICORNET_PASSWORD, then stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		username, password := loginUsername, loginPassword
		if password == "" {
			password = os.Getenv("ICORNET_PASSWORD")
		}
		if password == "" {
			if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
		}
		if username == "" || password == "" {
			return errors.New("username and password are required")
		}

		user, err := a.client.Login(cmd.Context(), username, password)
		if err != nil {
			return err
		}
		if err := a.client.SaveCookies(a.sessionFile); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Logged in as %s\n", userLabel(user))
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		if registerReq.Password == "" {
			registerReq.Password = os.Getenv("ICORNET_PASSWORD")
		}
		if registerReq.Password == "" {
			if registerReq.Password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
				return err
			}
		}
		user, err := a.client.Register(cmd.Context(), registerReq)
		if err != nil {
			return err
		}
		if err := a.client.SaveCookies(a.sessionFile); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Registered and logged in as %s\n", userLabel(user))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Close the session and forget its cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		// The local session is dropped even when the server call fails.
		logoutErr := a.client.Logout(cmd.Context())
		if err := os.Remove(a.sessionFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		if logoutErr != nil {
			return logoutErr
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the session user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.close()

		user, err := a.client.CurrentUser(cmd.Context())
		if errors.Is(err, service.ErrNotAuthenticated) {
			fmt.Fprintln(a.out, "Not logged in")
			return nil
		}
		if err != nil {
			return err
		}
		a.session.SetUser(user)
		fmt.Fprintf(a.out, "%s\nid: %s\nemail: %s\n", userLabel(user), a.session.Identity(), user.Email)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Password")

	registerCmd.Flags().StringVarP(&registerReq.Username, "username", "u", "", "Username")
	registerCmd.Flags().StringVarP(&registerReq.Password, "password", "p", "", "Password")
	registerCmd.Flags().StringVar(&registerReq.Email, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registerReq.FirstName, "first-name", "", "First name")
	registerCmd.Flags().StringVar(&registerReq.LastName, "last-name", "", "Last name")

	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd)
}
