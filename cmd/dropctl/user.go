package main

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAdmin bool
var userPassword string

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadBackends(); err != nil {
			return err
		}
		password := userPassword
		if password == "" {
			fmt.Print("Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Println()
			if err != nil {
				return errors.Wrap(err, "could not read password")
			}
			password = string(raw)
		}
		if password == "" {
			return errors.New("password must not be empty")
		}
		created, err := users.Create(args[0], password, userAdmin)
		if err != nil {
			return err
		}
		if !created {
			return errors.Errorf("user '%s' already exists", args[0])
		}
		fmt.Printf("created user '%s'\n", args[0])
		return nil
	},
}

var userRmCmd = &cobra.Command{
	Use:   "rm <username>",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadBackends(); err != nil {
			return err
		}
		removed, err := users.Delete(args[0])
		if err != nil {
			return err
		}
		if removed == nil {
			return errors.Errorf("no user '%s'", args[0])
		}
		fmt.Printf("removed user '%s'\n", args[0])
		return nil
	},
}

var userLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadBackends(); err != nil {
			return err
		}
		list, err := users.List()
		if err != nil {
			return err
		}
		for _, u := range list {
			role := ""
			if u.Admin {
				role = " (admin)"
			}
			fmt.Printf("%s%s\n", u.ID, role)
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "create an admin user")
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password (prompted when omitted)")
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userRmCmd)
	userCmd.AddCommand(userLsCmd)
}
