package cmd

import (
	"context"
	"fmt"

	"github.com/crash-ph/admin-console/internal/appconfig"
	awsclient "github.com/crash-ph/admin-console/internal/aws"
	"github.com/rs/zerolog/log"
)

// resolveSecrets fills in connection secrets kept in AWS Secrets Manager.
// Nothing is fetched when no secret is referenced.
func resolveSecrets(ctx context.Context, cfg *appconfig.Config) error {
	if cfg.Database.SecretName == "" && cfg.Redis.PasswordSecret == "" {
		return nil
	}

	awsCfg, err := awsclient.LoadAWSConfig(ctx, cfg.AWS.Region)
	if err != nil {
		return fmt.Errorf("unable to load SDK config: %w", err)
	}
	client := awsclient.NewSecretsManagerClient(awsCfg)

	if cfg.Database.SecretName != "" {
		log.Info().Str("secret", cfg.Database.SecretName).Msg("Reading database source from secrets manager")
		source, err := awsclient.GetSecret(ctx, client, cfg.Database.SecretName)
		if err != nil {
			return fmt.Errorf("database secret: %w", err)
		}
		cfg.Database.Source = source
	}

	if cfg.Redis.PasswordSecret != "" {
		log.Info().Str("secret", cfg.Redis.PasswordSecret).Msg("Reading redis password from secrets manager")
		password, err := awsclient.GetSecret(ctx, client, cfg.Redis.PasswordSecret)
		if err != nil {
			return fmt.Errorf("redis secret: %w", err)
		}
		cfg.Redis.Password = password
	}

	return nil
}
