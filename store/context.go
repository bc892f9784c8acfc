package store

import "github.com/scabbardhq/consensus-store/ids"

// Context is the persisted role binding for a (service_id, epoch) pair
// (spec §3, "Context"). Exactly one Context may exist per pair (C1).
type Context struct {
	ServiceID ids.ServiceId
	Epoch     ids.Epoch
	Role      Role
}

// CoordinatorContext builds the coordinator-role binding for (serviceID, epoch).
func CoordinatorContext(serviceID ids.ServiceId, epoch ids.Epoch) Context {
	return Context{ServiceID: serviceID, Epoch: epoch, Role: RoleCoordinator}
}

// ParticipantContext builds the participant-role binding for (serviceID, epoch).
func ParticipantContext(serviceID ids.ServiceId, epoch ids.Epoch) Context {
	return Context{ServiceID: serviceID, Epoch: epoch, Role: RoleParticipant}
}
