package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/demand-service/internal/repository"
	"github.com/spec-kit/demand-service/internal/service"
)

func seedUserCmd() *cobra.Command {
	var input service.RegisterInput
	cmd := &cobra.Command{
		Use:   "seed-user",
		Short: "Create a user account (password from --password or SEED_PASSWORD)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if input.Password == "" {
				input.Password = os.Getenv("SEED_PASSWORD")
			}
			if input.Password == "" {
				return errors.New("a password is required")
			}
			return withDatabase(cmd.Context(), func(env *environment) error {
				auth := service.NewAuthService(env.cfg.Auth, repository.NewUserRepository(env.pg.PoolHandle()))
				user, err := auth.Register(cmd.Context(), input)
				if err != nil {
					return err
				}
				env.logger.Info("user created",
					zap.Int64("user_id", user.ID),
					zap.String("employee_code", user.EmployeeCode),
					zap.Bool("manager", user.IsManager),
				)
				fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s)\n", user.ID, user.EmployeeCode)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&input.EmployeeCode, "code", "", "employee code used to log in")
	flags.StringVar(&input.Name, "name", "", "display name")
	flags.StringVar(&input.Department, "department", "", "department the user belongs to")
	flags.BoolVar(&input.IsManager, "manager", false, "flag the user as a department manager")
	flags.StringVar(&input.Password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("department")
	return cmd
}
