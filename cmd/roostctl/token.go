package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"roost/internal/database"
	"roost/internal/domain"
)

func newTokenCmd(open storeOpener, settingsPath *string) *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Create and manage manager tokens",
	}

	var addState string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new manager token and print it",
		Long: `Creates a manager token with the given state.

The token is printed once. Only its digest is stored, so it cannot be
recovered later.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseStateFlag(addState)
			if err != nil {
				return err
			}

			store, closeStore, err := open(*settingsPath)
			if err != nil {
				return err
			}
			defer closeStore()

			token, err := store.Create(cmd.Context(), state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	addCmd.Flags().StringVar(&addState, "state", "ok", "Token state: disabled, ok or admin (or 0, 1, 2)")

	var (
		modifyToken string
		modifyState string
	)
	modifyCmd := &cobra.Command{
		Use:   "modify",
		Short: "Change the state of an existing token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := parseStateFlag(modifyState)
			if err != nil {
				return err
			}

			store, closeStore, err := open(*settingsPath)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.UpdateState(cmd.Context(), modifyToken, state); err != nil {
				if errors.Is(err, database.ErrTokenNotFound) {
					return fmt.Errorf("token not found")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token set to %s\n", state)
			return nil
		},
	}
	modifyCmd.Flags().StringVar(&modifyToken, "token", "", "Token to modify")
	modifyCmd.Flags().StringVar(&modifyState, "state", "", "New state: disabled, ok or admin (or 0, 1, 2)")
	_ = modifyCmd.MarkFlagRequired("token")
	_ = modifyCmd.MarkFlagRequired("state")

	var showToken string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the state of a token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := open(*settingsPath)
			if err != nil {
				return err
			}
			defer closeStore()

			state, err := store.State(cmd.Context(), showToken)
			if err != nil {
				if errors.Is(err, database.ErrTokenNotFound) {
					return fmt.Errorf("token not found")
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	showCmd.Flags().StringVar(&showToken, "token", "", "Token to look up")
	_ = showCmd.MarkFlagRequired("token")

	tokenCmd.AddCommand(addCmd, modifyCmd, showCmd)
	return tokenCmd
}

func parseStateFlag(raw string) (domain.ManagerState, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.ParseUint(value, 10, 8); err == nil {
		if state := domain.ParseManagerState(uint8(n)); state != domain.ManagerUnknown {
			return state, nil
		}
		return domain.ManagerUnknown, fmt.Errorf("invalid state %q", raw)
	}

	for _, state := range []domain.ManagerState{domain.ManagerDisabled, domain.ManagerOk, domain.ManagerAdmin} {
		if state.String() == value {
			return state, nil
		}
	}
	return domain.ManagerUnknown, fmt.Errorf("invalid state %q", raw)
}
