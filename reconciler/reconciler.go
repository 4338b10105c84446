// Package reconciler drives one reconciliation pass: build the validated
// state from the current snapshot, publish it over the proxy integrations and
// surface the outcome as a status. Every pass is a full recomputation; no
// state is carried between triggers.
package reconciler

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"

	"github.com/canonical/ingress-configurator/config"
	"github.com/canonical/ingress-configurator/model"
	"github.com/canonical/ingress-configurator/relation"
	"github.com/canonical/ingress-configurator/relation/haproxyroute"
	"github.com/canonical/ingress-configurator/relation/haproxyroutetcp"
	"github.com/canonical/ingress-configurator/relation/ingress"
)

// Snapshot is the full reconciliation input: the configuration bag and the
// established relations, all materialized by the hosting platform before the
// trigger fires.
type Snapshot struct {
	Config    *config.Bag
	Relations []*relation.Relation
}

// Reconciler recomputes and republishes the routing description.
type Reconciler struct {
	Reporter StatusReporter
}

// Reconcile runs one pass over the snapshot and reports the resulting status.
// The returned status mirrors what was reported.
func (r *Reconciler) Reconcile(ctx context.Context, snap *Snapshot) Status {
	logger := zerolog.Ctx(ctx).With().Str("run_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	status := r.reconcile(ctx, snap)
	if r.Reporter != nil {
		if err := r.Reporter.Report(ctx, status); err != nil {
			logger.Error().Err(err).Msg("reporting status")
		}
	}
	return status
}

func (r *Reconciler) reconcile(ctx context.Context, snap *Snapshot) Status {
	logger := zerolog.Ctx(ctx)

	routeRel := relation.Find(snap.Relations, haproxyroute.Name)
	if routeRel == nil {
		return Blocked("Missing haproxy-route relation.")
	}

	ingressRel := relation.Find(snap.Relations, ingress.Name)
	upstream, err := ingress.Data(ingressRel)
	if err != nil {
		return Blocked(err.Error())
	}

	state, err := model.NewState(snap.Config, upstream)
	if err != nil {
		logger.Warn().Err(err).Msg("state validation failed")
		return Blocked(err.Error())
	}

	payload := haproxyroute.FromState(state)
	previous := haproxyroute.Published(routeRel)
	if err := haproxyroute.Publish(routeRel, payload); err != nil {
		return Blocked(err.Error())
	}
	logPayloadDiff(logger, previous, haproxyroute.Published(routeRel))

	if status, ok := r.reconcileTCP(ctx, snap); !ok {
		return status
	}

	endpoints, err := haproxyroute.ProxiedEndpoints(routeRel)
	if err != nil {
		return Blocked(err.Error())
	}
	if ingressRel != nil && len(endpoints) > 0 {
		ingress.PublishURL(ingressRel, endpoints[0])
		logger.Debug().Str("url", endpoints[0]).Msg("republished proxied endpoint")
	}

	return Active()
}

// reconcileTCP publishes the raw TCP route when one is configured. The bool
// result is false when reconciliation must stop with the returned status.
func (r *Reconciler) reconcileTCP(ctx context.Context, snap *Snapshot) (Status, bool) {
	if !model.TCPConfigured(snap.Config) {
		return Status{}, true
	}
	tcpRel := relation.Find(snap.Relations, haproxyroutetcp.Name)
	if tcpRel == nil {
		return Blocked("Missing haproxy-route-tcp relation."), false
	}
	reqs, err := model.NewTCPRequirements(snap.Config)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("tcp requirements validation failed")
		return Blocked(err.Error()), false
	}
	previous := haproxyroutetcp.Published(tcpRel)
	if err := haproxyroutetcp.Publish(tcpRel, haproxyroutetcp.FromRequirements(reqs)); err != nil {
		return Blocked(err.Error()), false
	}
	logPayloadDiff(zerolog.Ctx(ctx), previous, haproxyroutetcp.Published(tcpRel))
	return Status{}, true
}

// logPayloadDiff traces what changed in a published payload between passes.
func logPayloadDiff(logger *zerolog.Logger, previous, current string) {
	if previous == current || logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(previous, current, false)
	logger.Debug().Str("diff", dmp.DiffPrettyText(diffs)).Msg("published payload changed")
}
