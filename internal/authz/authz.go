// Package authz holds the pure access rules for tracker resources. The
// predicates take plain identifiers and membership facts so they stay
// independent of HTTP types and the persistence layer; callers load the
// facts and surface denials as 403 responses.
package authz

import "errors"

// ErrForbidden marks a denied authorization decision.
var ErrForbidden = errors.New("forbidden")

// Operation identifies what the actor wants to do with a resource.
type Operation string

const (
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Resource describes the target of a decision: the author of the resource
// itself and the author of the project that owns it. For a project both
// fields carry the same identifier.
type Resource struct {
	AuthorID        string
	ProjectAuthorID string
}

// IsMember reports whether the actor belongs to the owning project. The
// project author always counts as a member.
func IsMember(actorID string, projectAuthorID string, isContributor bool) bool {
	return isContributor || (actorID != "" && actorID == projectAuthorID)
}

// Check applies the ownership rule for one (actor, resource, operation)
// triple. Reads require membership in the owning project; updates and
// deletes additionally require authorship of the resource.
func Check(actorID string, res Resource, isContributor bool, op Operation) error {
	if !IsMember(actorID, res.ProjectAuthorID, isContributor) {
		return ErrForbidden
	}
	switch op {
	case OpRead:
		return nil
	case OpUpdate, OpDelete:
		if actorID != res.AuthorID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// CanManageContributors reports whether the actor may add or remove project
// members. Only the project author holds that right.
func CanManageContributors(actorID, projectAuthorID string) error {
	if actorID == "" || actorID != projectAuthorID {
		return ErrForbidden
	}
	return nil
}

// CheckRemoveContributor guards membership removal. The project author's own
// membership can never be removed; there is no reassignment rule.
func CheckRemoveContributor(actorID, projectAuthorID, memberUserID string) error {
	if err := CanManageContributors(actorID, projectAuthorID); err != nil {
		return err
	}
	if memberUserID == projectAuthorID {
		return ErrForbidden
	}
	return nil
}
