package orders

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	orderactivities "github.com/Apurer/stock-ledger/internal/platform/temporal/activities/orders"
)

// Registry is satisfied by Temporal workers and test workflow environments.
type Registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register binds the fulfillment workflow and its activities under their public names.
func Register(r Registry, acts *orderactivities.Activities) {
	r.RegisterWorkflowWithOptions(FulfillmentWorkflow, workflow.RegisterOptions{Name: FulfillmentWorkflowName})
	r.RegisterActivityWithOptions(acts.FulfillOrder, activity.RegisterOptions{Name: orderactivities.FulfillOrderActivityName})
	r.RegisterActivityWithOptions(acts.MirrorLedger, activity.RegisterOptions{Name: orderactivities.MirrorLedgerActivityName})
}
