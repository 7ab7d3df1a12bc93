package provision

import (
	"errors"
	"fmt"
)

// Kind is a stable, caller-visible failure classification. Every error
// returned by the Provisioner carries exactly one Kind; callers map kinds to
// responses and decide their own retry policy.
type Kind string

const (
	// KindNameConflict: the bucket name is already reserved or taken.
	KindNameConflict Kind = "NameConflict"

	// KindUserNotFound: the requesting user does not exist. Defensive; an
	// authenticated caller should always resolve.
	KindUserNotFound Kind = "UserNotFound"

	// KindStorageCreateFailed: the backend bucket-creation call failed, or
	// the bucket already existed on the backend (registry/storage drift).
	KindStorageCreateFailed Kind = "StorageCreateFailed"

	// KindPolicySetFailed: attaching the single-owner policy failed. The
	// just-created bucket has been removed again, best-effort.
	KindPolicySetFailed Kind = "PolicySetFailed"

	// KindRegistrationFailed: the registry record could not be completed
	// after the bucket and policy were in place. Compensation ran.
	KindRegistrationFailed Kind = "RegistrationFailed"

	// KindNotFoundOrNotOwned: no bucket of that name is owned by the caller.
	// Deliberately indistinguishable from "owned by someone else" so bucket
	// names are not probeable.
	KindNotFoundOrNotOwned Kind = "NotFoundOrNotOwned"

	// KindStorageDeleteFailed: the backend bucket-deletion call failed. The
	// registry record is kept so the bucket is not orphaned from the owner's
	// view.
	KindStorageDeleteFailed Kind = "StorageDeleteFailed"

	// KindRegistrationDeleteFailed: the backend bucket is gone but the
	// registry record could not be removed, leaving a dangling record.
	KindRegistrationDeleteFailed Kind = "RegistrationDeleteFailed"

	// KindPolicyNotFound: the backend reports no policy for the bucket.
	KindPolicyNotFound Kind = "PolicyNotFound"
)

// Error is a classified provisioning failure. The wrapped cause carries the
// original remote-call diagnostics.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or the empty Kind for errors that
// did not originate in the provisioner.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
