package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-gateway-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashTable(t *testing.T) {
	in := hashTable("email_verifications", fieldVerificationCode)

	assert.Equal(t, "email_verifications", *in.TableName)
	assert.Equal(t, types.BillingModePayPerRequest, in.BillingMode)
	require.Len(t, in.KeySchema, 1)
	assert.Equal(t, "verification_code", *in.KeySchema[0].AttributeName)
	assert.Equal(t, types.KeyTypeHash, in.KeySchema[0].KeyType)
	require.Len(t, in.AttributeDefinitions, 1)
	assert.Equal(t, types.ScalarAttributeTypeS, in.AttributeDefinitions[0].AttributeType)
}

// The key attribute each repo addresses must match the domain struct tags.
func TestKeyFieldsMatchDomainTags(t *testing.T) {
	cases := []struct {
		item interface{}
		key  string
	}{
		{&domain.EmailVerification{VerificationCode: "c"}, fieldVerificationCode},
		{&domain.EmailTemplate{TemplateID: "t"}, fieldTemplateID},
		{&domain.Session{SessionID: "s"}, fieldSessionID},
		{&domain.Group{GroupID: "g"}, fieldGroupID},
	}
	for _, c := range cases {
		m, err := attributevalue.MarshalMap(c.item)
		require.NoError(t, err)
		_, ok := m[c.key]
		assert.True(t, ok, "%T missing %s", c.item, c.key)
	}

	m, err := attributevalue.MarshalMap(&domain.Group{GroupID: "g", Owner: "o", Members: []string{"o"}})
	require.NoError(t, err)
	assert.Contains(t, m, fieldOwner)
	assert.Contains(t, m, fieldMembers)
}
