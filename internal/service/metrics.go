package service

import "github.com/prometheus/client_golang/prometheus"

var (
	groupsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pickfast_groups_created_total",
		Help: "Groups created.",
	})
	groupsDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickfast_groups_deleted_total",
		Help: "Groups deleted, by reason.",
	}, []string{"reason"})
	adminSuccessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickfast_admin_successions_total",
		Help: "Admin departures resolved, by outcome.",
	}, []string{"outcome"})
	membershipDenied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickfast_membership_denied_total",
		Help: "Rejected group operations, by reason.",
	}, []string{"reason"})
	productsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pickfast_products_evicted_total",
		Help: "Purchased products removed by retention.",
	})
	mailsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pickfast_mails_total",
		Help: "User notification mails, by kind and result.",
	}, []string{"kind", "result"})
)

func init() {
	prometheus.MustRegister(groupsCreated, groupsDeleted, adminSuccessions, membershipDenied, productsEvicted, mailsSent)
}
