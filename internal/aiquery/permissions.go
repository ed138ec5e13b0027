package aiquery

import (
	"fmt"
	"strings"

	apperrors "aiquery-workers/internal/common/errors"
	"aiquery-workers/internal/models"
)

// CanAccessOrg reports whether qc may read orgID. Global contexts reach every org.
func CanAccessOrg(qc models.AIQueryContext, orgID string) bool {
	if qc.Scope() == models.ScopeGlobal {
		return true
	}
	return qc.Allows(orgID)
}

func CanQueryCrossOrg(qc models.AIQueryContext) bool {
	return qc.CanCompareOrgs()
}

// EnforceOrgScope resolves the org a single-org template runs against.
//
// An explicit request must be accessible. Without one, the single allowed org is
// used; a global context falls back to its active org. Anything else is
// MissingOrgScope.
func EnforceOrgScope(qc models.AIQueryContext, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested != "" {
		if !CanAccessOrg(qc, requested) {
			return "", apperrors.NewAccessDeniedError(
				fmt.Sprintf("user %s (scope %s) requested org %s", qc.UserID(), qc.Scope(), requested))
		}
		return requested, nil
	}

	if allowed := qc.AllowedOrgIDs(); len(allowed) > 0 {
		return allowed[0], nil
	}
	if qc.Scope() == models.ScopeGlobal && qc.ActiveOrgID() != "" {
		return qc.ActiveOrgID(), nil
	}
	return "", apperrors.NewMissingOrgScopeError(
		fmt.Sprintf("user %s (scope %s) has no default org", qc.UserID(), qc.Scope()))
}

// RequireCrossOrg gates the templates that read every organization.
func RequireCrossOrg(qc models.AIQueryContext) error {
	if !CanQueryCrossOrg(qc) {
		return apperrors.NewCrossOrgDeniedError(
			fmt.Sprintf("user %s (scope %s) lacks cross-org rights", qc.UserID(), qc.Scope()))
	}
	return nil
}
