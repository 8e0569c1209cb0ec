package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 进程级指标，在运行结束时可导出为 node_exporter textfile 格式。
// - qnreport_op_total{comp,stage,result}
// - qnreport_error_total{comp,code}
// - qnreport_anomaly_total{kind}
// - qnreport_op_duration_ms{comp,stage}
var (
	registry = prometheus.NewRegistry()

	opTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qnreport",
			Name:      "op_total",
			Help:      "Operations by component, stage and result",
		},
		[]string{"comp", "stage", "result"},
	)

	errorTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qnreport",
			Name:      "error_total",
			Help:      "Errors by component and classification code",
		},
		[]string{"comp", "code"},
	)

	anomalyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qnreport",
			Name:      "anomaly_total",
			Help:      "Data-quality anomalies by kind",
		},
		[]string{"kind"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qnreport",
			Name:      "op_duration_ms",
			Help:      "Stage duration in milliseconds",
			Buckets:   []float64{1, 5, 25, 100, 500, 2500, 10000, 60000},
		},
		[]string{"comp", "stage"},
	)
)

func init() {
	registry.MustRegister(opTotal, errorTotal, anomalyTotal, opDuration)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// IncAnomaly 累加数据质量异常（alias_missing / maybe_invalid / illegal_filename）。
func IncAnomaly(kind string) {
	anomalyTotal.WithLabelValues(kind).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// WriteMetrics 以 textfile 格式原子写出全部指标；path 为空时跳过。
func WriteMetrics(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, registry)
}
