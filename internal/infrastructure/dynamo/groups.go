package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-gateway-auth/internal/domain"
)

// GroupRepo provides typed DynamoDB operations for the groups table.
// PK: group_id
type GroupRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewGroupRepo(client *dynamodb.Client, tableName string) *GroupRepo {
	return &GroupRepo{client: client, tableName: tableName}
}

func (r *GroupRepo) Put(ctx context.Context, g *domain.Group) error {
	item, err := attributevalue.MarshalMap(g)
	if err != nil {
		return fmt.Errorf("marshal group: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *GroupRepo) Get(ctx context.Context, groupID string) (*domain.Group, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldGroupID, groupID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("group not found: %w", domain.ErrNotFound)
	}
	var g domain.Group
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// ListForUser returns every group the user owns or belongs to.
// Membership lives in a list attribute, so this is a filtered scan.
func (r *GroupRepo) ListForUser(ctx context.Context, username string) ([]domain.Group, error) {
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("#o = :u OR contains(#m, :u)"),
		ExpressionAttributeNames: map[string]string{
			"#o": fieldOwner,
			"#m": fieldMembers,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: username},
		},
	})
	var groups []domain.Group
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var page []domain.Group
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		groups = append(groups, page...)
	}
	return groups, nil
}

// Update applies updates only while the stored updated_at still equals prev,
// so concurrent read-modify-write cycles cannot overwrite each other. A lost
// race returns ErrConflict; a missing group returns ErrNotFound.
func (r *GroupRepo) Update(ctx context.Context, groupID string, prev time.Time, updates map[string]interface{}) error {
	if _, ok := updates[fieldUpdatedAt]; !ok {
		updates[fieldUpdatedAt] = time.Now().UTC()
	}
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	prevAV, err := attributevalue.Marshal(prev)
	if err != nil {
		return fmt.Errorf("marshal updated_at: %w", err)
	}
	ue.Names["#pk"] = fieldGroupID
	ue.Names["#prev"] = fieldUpdatedAt
	ue.Values[":prev"] = prevAV
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                           aws.String(r.tableName),
		Key:                                 strKey(fieldGroupID, groupID),
		UpdateExpression:                    aws.String(ue.Expr),
		ConditionExpression:                 aws.String(groupUpdateCondition),
		ExpressionAttributeNames:            ue.Names,
		ExpressionAttributeValues:           ue.Values,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		if ccf.Item == nil {
			return fmt.Errorf("group not found: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("group %s changed concurrently: %w", groupID, domain.ErrConflict)
	}
	return err
}

const groupUpdateCondition = "attribute_exists(#pk) AND #prev = :prev"

func (r *GroupRepo) Delete(ctx context.Context, groupID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldGroupID, groupID),
	})
	return err
}
