// Package metrics exposes Prometheus instrumentation for the vault and farm
// engines. Counters track operation volume per result, gauges mirror the
// headline ledger figures after each transaction.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LendingMetrics struct {
	vaultOps     *prometheus.CounterVec
	farmOps      *prometheus.CounterVec
	totalDebt    prometheus.Gauge
	totalBalance prometheus.Gauge
	reservePool  prometheus.Gauge
	txTotal      *prometheus.CounterVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			vaultOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "vault_operations_total",
				Help: "Count of vault operations by name and result.",
			}, []string{"op", "result"}),
			farmOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "farm_operations_total",
				Help: "Count of farm operations by name and result.",
			}, []string{"op", "result"}),
			totalDebt: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_total_debt",
				Help: "Outstanding vault debt including accrued interest.",
			}),
			totalBalance: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_total_balance",
				Help: "Vault balance backing depositor claims.",
			}),
			reservePool: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "vault_reserve_pool",
				Help: "Interest skimmed into the protocol reserve.",
			}),
			txTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "chain_transactions_total",
				Help: "Count of submitted transactions by result.",
			}, []string{"result"}),
		}
		prometheus.MustRegister(
			lendingRegistry.vaultOps,
			lendingRegistry.farmOps,
			lendingRegistry.totalDebt,
			lendingRegistry.totalBalance,
			lendingRegistry.reservePool,
			lendingRegistry.txTotal,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) ObserveVaultOp(op string, err error) {
	if m == nil {
		return
	}
	m.vaultOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *LendingMetrics) ObserveFarmOp(op string, err error) {
	if m == nil {
		return
	}
	m.farmOps.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *LendingMetrics) SetVaultFigures(totalDebt, totalBalance, reservePool float64) {
	if m == nil {
		return
	}
	m.totalDebt.Set(totalDebt)
	m.totalBalance.Set(totalBalance)
	m.reservePool.Set(reservePool)
}

func (m *LendingMetrics) ObserveTransaction(err error) {
	if m == nil {
		return
	}
	m.txTotal.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
