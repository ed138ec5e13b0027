package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIQueryContext_Validate(t *testing.T) {
	assert.NoError(t, NewOrgContext("u", "Ann", "org-a").Validate())
	assert.NoError(t, NewGlobalContext("root", "Root", "").Validate())

	assert.ErrorIs(t, AIQueryContext{}.Validate(), ErrInvalidContext)
	assert.ErrorIs(t, NewOrgContext("u", "Ann", " ").Validate(), ErrInvalidContext)
}

func TestContextPayload_RoundTrip(t *testing.T) {
	var p ContextPayload
	require.NoError(t, json.Unmarshal([]byte(`{"scope": "org", "allowedOrgIds": ["org-a"], "userId": "u1", "userName": "Ann", "activeOrgId": "org-a"}`), &p))

	qc, err := p.ToContext()
	require.NoError(t, err)
	assert.Equal(t, ScopeOrg, qc.Scope())
	assert.True(t, qc.Allows("org-a"))
	assert.False(t, qc.Allows("org-b"))
	assert.False(t, qc.CanCompareOrgs())
	assert.Equal(t, p, qc.Payload())
}

func TestContextPayload_Rejects(t *testing.T) {
	cases := []ContextPayload{
		{Scope: ScopeOrg, AllowedOrgIDs: []string{"a", "b"}},
		{Scope: ScopeOrg, AllowedOrgIDs: []string{"a"}, CanCompareOrgs: true},
		{Scope: ScopeGlobal, CanCompareOrgs: false},
		{Scope: ScopeGlobal, AllowedOrgIDs: []string{"a"}, CanCompareOrgs: true},
		{Scope: "team"},
	}
	for _, p := range cases {
		_, err := p.ToContext()
		assert.ErrorIs(t, err, ErrInvalidContext, "%+v", p)
	}
}

func TestAllowedOrgIDs_IsACopy(t *testing.T) {
	qc := NewOrgContext("u", "Ann", "org-a")
	ids := qc.AllowedOrgIDs()
	ids[0] = "org-b"
	assert.True(t, qc.Allows("org-a"))
	assert.Nil(t, NewGlobalContext("root", "Root", "").AllowedOrgIDs())
}

func TestTemplateNames(t *testing.T) {
	all := AllTemplateNames()
	assert.Len(t, all, 12)
	assert.Len(t, OrgScopedTemplateNames(), 10)
	assert.Len(t, CrossOrgTemplateNames(), 2)

	assert.True(t, TemplateCrossOrgSpending.IsCrossOrg())
	assert.False(t, TemplateTopVendors.IsCrossOrg())
	assert.True(t, TemplateSearchItems.Valid())
	assert.False(t, TemplateName("drop_tables").Valid())

	names := OrgScopedTemplateNames()
	names[0] = "mutated"
	assert.Equal(t, TemplateCurrentPrice, OrgScopedTemplateNames()[0])
}

func TestQueryResult(t *testing.T) {
	ok := Success([]int{})
	assert.True(t, ok.OK())
	assert.Empty(t, ok.ErrorMessage())

	failed := Failure("Access denied")
	assert.False(t, failed.OK())
	assert.Nil(t, failed.Data)
	assert.Equal(t, "Access denied", failed.ErrorMessage())
}
