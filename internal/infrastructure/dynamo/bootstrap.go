package dynamo

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-gateway-auth/internal/config"
	"github.com/go-gateway-auth/internal/domain"
)

// Bootstrap creates all DynamoDB tables if they don't already exist.
// Safe to call on every startup; existing tables are skipped.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables) {
	createTable(ctx, client, hashTable(tables.EmailVerifications, fieldVerificationCode))
	createTable(ctx, client, hashTable(tables.EmailTemplates, fieldTemplateID))
	createTable(ctx, client, hashTable(tables.Sessions, fieldSessionID))
	enableTTL(ctx, client, tables.Sessions, "expires_at")
	createTable(ctx, client, hashTable(tables.Groups, fieldGroupID))
}

// SeedTemplates writes each template that is not already stored.
// Operators may edit stored templates; seeding never overwrites them.
func SeedTemplates(ctx context.Context, repo *TemplateRepo, templates []domain.EmailTemplate) {
	for i := range templates {
		written, err := repo.PutIfAbsent(ctx, &templates[i])
		if err != nil {
			slog.Warn("could not seed email template", "template", templates[i].TemplateID, "err", err)
			continue
		}
		if written {
			slog.Info("seeded email template", "template", templates[i].TemplateID)
		}
	}
}

func hashTable(name, key string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName:   aws.String(name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(key), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(key), KeyType: types.KeyTypeHash},
		},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		// ResourceInUseException means the table already exists.
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			slog.Warn("could not create table", "table", *input.TableName, "err", err)
		}
	} else {
		slog.Info("created table", "table", *input.TableName)
	}
}

func enableTTL(ctx context.Context, client *dynamodb.Client, tableName, ttlAttr string) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		slog.Warn("could not enable TTL", "table", tableName, "err", err)
	}
}
