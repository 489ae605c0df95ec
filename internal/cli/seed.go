package cli

import (
	"github.com/spf13/cobra"

	"github.com/iliyamo/hotel-reservation/internal/config"
	"github.com/iliyamo/hotel-reservation/internal/utils"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin account and the initial rooms",
	Long: `Creates the administrator named by ADMIN_NAME / ADMIN_EMAIL /
ADMIN_PASSWORD and the sixteen rooms on floors 1 to 4.  Existing rows are
left alone, so the command can be run after every deploy.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnv()
		if err != nil {
			return err
		}
		defer env.close()
		if env.cfg.Store == config.StoreMemory {
			env.log.Warn("seeding the in-memory store has no lasting effect; serve seeds it on start")
		}
		if err := env.openStore(); err != nil {
			return err
		}
		return env.seed(cmd.Context())
	},
}

func hashPassword(plain string, cost int) (string, error) {
	return utils.HashPassword(plain, cost)
}
