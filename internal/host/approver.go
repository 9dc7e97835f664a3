package host

import "context"

// Approver decides whether an origin may install a snap.
type Approver interface {
	ApproveInstall(ctx context.Context, origin, snapID, version string) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, origin, snapID, version string) (bool, error)

func (f ApproverFunc) ApproveInstall(ctx context.Context, origin, snapID, version string) (bool, error) {
	return f(ctx, origin, snapID, version)
}

// AutoApprover approves every install.
type AutoApprover struct{}

func (AutoApprover) ApproveInstall(context.Context, string, string, string) (bool, error) {
	return true, nil
}

// RejectingApprover declines every install.
type RejectingApprover struct{}

func (RejectingApprover) ApproveInstall(context.Context, string, string, string) (bool, error) {
	return false, nil
}
