package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User management commands",
	Long:  `Commands for managing the users allowed to call the API.`,
}

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API user",
	RunE:  runCreateUser,
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List API users",
	RunE:  runListUsers,
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an API user",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteUser,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(createUserCmd, listUsersCmd, deleteUserCmd)
}

func runCreateUser(cmd *cobra.Command, args []string) error {
	dbManager, err := appFromCommand(cmd).DB()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	// Get username
	fmt.Print("Enter username: ")
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)

	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}

	password, err := readPassword("Enter password: ")
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	user, err := dbManager.CreateUser(cmd.Context(), username, password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User created successfully!\n")
	fmt.Printf("ID: %s\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Created: %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func runListUsers(cmd *cobra.Command, args []string) error {
	dbManager, err := appFromCommand(cmd).DB()
	if err != nil {
		return err
	}

	users, err := dbManager.ListUsers(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tCREATED")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runDeleteUser(cmd *cobra.Command, args []string) error {
	dbManager, err := appFromCommand(cmd).DB()
	if err != nil {
		return err
	}

	if err := dbManager.DeleteUser(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", args[0], err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "User %s deleted\n", args[0])
	return nil
}

// readPassword prompts without echoing the input
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}
