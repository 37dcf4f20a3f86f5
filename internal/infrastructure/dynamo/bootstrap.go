package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/go-dating-api/internal/config"
)

type attr struct {
	name string
	typ  types.ScalarAttributeType
}

type tableDef struct {
	name    string
	attrs   []attr
	hash    string
	rng     string
	indexes []types.GlobalSecondaryIndex
	ttlAttr string
}

func tableDefs(t config.DynamoTables) []tableDef {
	s, n := types.ScalarAttributeTypeS, types.ScalarAttributeTypeN
	return []tableDef{
		{
			name:  t.Users,
			attrs: []attr{{"user_id", s}, {"username", s}, {"email", s}, {"google_sub", s}, {"enable", n}},
			hash:  "user_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUsername, "username", ""),
				gsi(idxEmail, "email", ""),
				gsi(idxGoogleSub, "google_sub", ""),
				gsi(idxEnable, "enable", ""),
			},
		},
		{
			name:  t.Sessions,
			attrs: []attr{{"session_id", s}, {"user_id", s}, {"refresh_token", s}},
			hash:  "session_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUserID, "user_id", ""),
				gsi(idxRefreshToken, "refresh_token", ""),
			},
		},
		{
			name:  t.Devices,
			attrs: []attr{{"device_id", s}, {"user_id", s}, {"device_uuid", s}},
			hash:  "device_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUserID, "user_id", ""),
				gsi(idxDeviceUUID, "device_uuid", ""),
			},
		},
		{
			name:    t.Notifications,
			attrs:   []attr{{"notification_id", s}, {"user_id", s}, {"created_at", s}},
			hash:    "notification_id",
			indexes: []types.GlobalSecondaryIndex{gsi(idxUserCreated, "user_id", "created_at")},
		},
		{
			name:    t.Files,
			attrs:   []attr{{"file_id", s}, {"uploaded_by_user_id", s}},
			hash:    "file_id",
			indexes: []types.GlobalSecondaryIndex{gsi(idxUploader, "uploaded_by_user_id", "")},
		},
		{
			name:    t.VerificationCodes,
			attrs:   []attr{{"user_id", s}, {"type", s}},
			hash:    "user_id",
			rng:     "type",
			ttlAttr: "expires_at",
		},
		{
			name:  t.Profiles,
			attrs: []attr{{"user_id", s}},
			hash:  "user_id",
		},
		{
			name:    t.Swipes,
			attrs:   []attr{{"actor_id", s}, {"target_id", s}},
			hash:    "actor_id",
			rng:     "target_id",
			indexes: []types.GlobalSecondaryIndex{gsi(idxTarget, "target_id", "actor_id")},
		},
		{
			name:  t.Matches,
			attrs: []attr{{"match_id", s}, {"user_a_id", s}, {"user_b_id", s}},
			hash:  "match_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUserA, "user_a_id", ""),
				gsi(idxUserB, "user_b_id", ""),
			},
		},
		{
			name:  t.Messages,
			attrs: []attr{{"match_id", s}, {"message_id", s}},
			hash:  "match_id",
			rng:   "message_id",
		},
		{
			name:  t.Subscriptions,
			attrs: []attr{{"subscription_id", s}, {"user_id", s}, {"created_at", s}, {"pix_txid", s}},
			hash:  "subscription_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUserCreated, "user_id", "created_at"),
				gsi(idxPIXTxID, "pix_txid", ""),
			},
		},
		{
			name:  t.PhotoVerifications,
			attrs: []attr{{"verification_id", s}, {"user_id", s}, {"status", s}, {"submitted_at", s}},
			hash:  "verification_id",
			indexes: []types.GlobalSecondaryIndex{
				gsi(idxUserSubmitted, "user_id", "submitted_at"),
				gsi(idxStatusSubmitted, "status", "submitted_at"),
			},
		},
	}
}

// Bootstrap creates all DynamoDB tables and GSIs if they don't already exist.
// Tables that already exist are left untouched.
func Bootstrap(ctx context.Context, client *dynamodb.Client, tables config.DynamoTables, log *logrus.Logger) {
	for _, def := range tableDefs(tables) {
		createTable(ctx, client, def.input(), log)
		if def.ttlAttr != "" {
			enableTTL(ctx, client, def.name, def.ttlAttr, log)
		}
	}
}

func (d tableDef) input() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:   aws.String(d.name),
		BillingMode: types.BillingModePayPerRequest,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(d.hash), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: d.indexes,
	}
	if d.rng != "" {
		in.KeySchema = append(in.KeySchema, types.KeySchemaElement{
			AttributeName: aws.String(d.rng), KeyType: types.KeyTypeRange,
		})
	}
	for _, a := range d.attrs {
		in.AttributeDefinitions = append(in.AttributeDefinitions, types.AttributeDefinition{
			AttributeName: aws.String(a.name), AttributeType: a.typ,
		})
	}
	return in
}

// gsi builds a GSI descriptor. If sortKey is empty, only a hash key is added.
func gsi(indexName, hashKey, sortKey string) types.GlobalSecondaryIndex {
	ks := []types.KeySchemaElement{
		{AttributeName: aws.String(hashKey), KeyType: types.KeyTypeHash},
	}
	if sortKey != "" {
		ks = append(ks, types.KeySchemaElement{
			AttributeName: aws.String(sortKey), KeyType: types.KeyTypeRange,
		})
	}
	return types.GlobalSecondaryIndex{
		IndexName:  aws.String(indexName),
		KeySchema:  ks,
		Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
	}
}

func createTable(ctx context.Context, client *dynamodb.Client, input *dynamodb.CreateTableInput, log *logrus.Logger) {
	_, err := client.CreateTable(ctx, input)
	if err != nil {
		var riue *types.ResourceInUseException
		if !errors.As(err, &riue) {
			log.WithError(err).WithField("table", *input.TableName).Warn("could not create table")
		}
		return
	}
	log.WithField("table", *input.TableName).Info("created table")
}

func enableTTL(ctx context.Context, client *dynamodb.Client, tableName, ttlAttr string, log *logrus.Logger) {
	_, err := client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			Enabled:       aws.Bool(true),
			AttributeName: aws.String(ttlAttr),
		},
	})
	if err != nil {
		log.WithError(err).WithField("table", tableName).Debug("could not enable TTL")
	}
}
