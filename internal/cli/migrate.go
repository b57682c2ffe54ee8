package cli

import (
	"context"
	"fmt"

	"commonthread/internal/config"
	awsinfra "commonthread/internal/infra/aws"
	"commonthread/internal/repository/postgres"
	"commonthread/internal/storage/s3"

	"github.com/spf13/cobra"
)

const (
	errMigrateNeedsPostgresFmt = "migrate requires STORE_DRIVER=%s"
	errFailedConnectDBFmt      = "failed to connect to database: %w"
	errFailedMigrateFmt        = "failed to apply schema: %w"
	errFailedEnsureBucketFmt   = "failed to ensure bucket %s: %w"
	errTablesMissingFmt        = "%d table(s) missing after migration"
	msgSchemaApplied           = "schema applied"
	msgTableChecked            = "table checked"
	msgTableCheckFailed        = "table check failed"
	msgBucketReady             = "bucket ready"
)

// MigrateCmd applies the embedded schema and verifies every table exists.
func MigrateCmd() *cobra.Command {
	var withBuckets bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		Long: `Apply the embedded PostgreSQL schema. Every statement is idempotent,
so running it against an up-to-date database is a no-op.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap("migrate")
			if err != nil {
				return err
			}
			if cfg.Store.Driver != config.StoreDriverPostgres {
				return fmt.Errorf(errMigrateNeedsPostgresFmt, config.StoreDriverPostgres)
			}

			db, err := postgres.New(&cfg.Database)
			if err != nil {
				return fmt.Errorf(errFailedConnectDBFmt, err)
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			if err := db.Migrate(ctx); err != nil {
				return fmt.Errorf(errFailedMigrateFmt, err)
			}
			log.Info().Msg(msgSchemaApplied)

			missing := 0
			for _, table := range postgres.Tables {
				exists, err := db.TableExists(ctx, table)
				if err != nil {
					log.Error().Err(err).Str("table", table).Msg(msgTableCheckFailed)
					missing++
					continue
				}
				if !exists {
					missing++
				}
				log.Info().Str("table", table).Bool("exists", exists).Msg(msgTableChecked)
			}
			if missing > 0 {
				return fmt.Errorf(errTablesMissingFmt, missing)
			}

			if withBuckets {
				return ensureBuckets(ctx, cfg, func(bucket string) {
					log.Info().Str("bucket", bucket).Msg(msgBucketReady)
				})
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBuckets, "buckets", false, "also create the media buckets")
	return cmd
}

func ensureBuckets(ctx context.Context, cfg *config.Config, ready func(string)) error {
	sess, err := awsinfra.NewSession(&cfg.AWS)
	if err != nil {
		return err
	}
	client := s3.NewClient(sess)

	buckets := []string{
		cfg.Buckets.StoryAudio,
		cfg.Buckets.StoryImages,
		cfg.Buckets.UserProfiles,
		cfg.Buckets.OrgProfiles,
	}
	for _, bucket := range buckets {
		if err := client.EnsureBucket(ctx, bucket, cfg.AWS.Region); err != nil {
			return fmt.Errorf(errFailedEnsureBucketFmt, bucket, err)
		}
		ready(bucket)
	}
	return nil
}
