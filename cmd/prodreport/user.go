package main

import (
	"errors"

	"github.com/DGISsoft/prodreport/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	userEmail    string
	userName     string
	userRole     string
	userPassword string
)

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user in MongoDB",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userPassword == "" {
			return errors.New("--password is required")
		}
		st, err := openStores(cmd.Context(), cfg, false, log)
		if err != nil {
			return err
		}
		defer st.close(cmd.Context())

		user := &models.User{
			Email: userEmail,
			Name:  userName,
			Role:  models.UserRole(userRole),
		}
		if err := st.users.CreateUser(cmd.Context(), user, userPassword); err != nil {
			return err
		}
		log.Info("user created",
			zap.String("user_id", user.ID.Hex()),
			zap.String("email", user.Email),
			zap.String("role", string(user.Role)))
		return nil
	},
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "login email")
	userCreateCmd.Flags().StringVar(&userName, "name", "", "display name")
	userCreateCmd.Flags().StringVar(&userRole, "role", string(models.UserRoleReporter), "admin, reporter or viewer")
	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "initial password")
	_ = userCreateCmd.MarkFlagRequired("email")
	userCmd.AddCommand(userCreateCmd)
}
