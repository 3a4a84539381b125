package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Units are encoded according to the case-sensitive abbreviations from the
// Unified Code for Units of Measure: http://unitsofmeasure.org/ucum.html.
const (
	unitDimensionless = "1"
	unitMilliseconds  = "ms"
)

//nolint:gochecknoglobals // histogram boundaries are shared by every view
var defaultMillisecondsBoundaries = []float64{
	0.0, 0.1, 0.2, 0.4, 0.6, 0.8, 1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 8.0, 10.0,
	13.0, 16.0, 20.0, 25.0, 30.0, 40.0, 50.0, 65.0, 80.0, 100.0, 130.0,
	160.0, 200.0, 250.0, 300.0, 400.0, 500.0, 650.0, 800.0, 1000.0, 2000.0,
	5000.0, 10000.0,
}

// Views returns the latency histogram view for pkg. Register it on the
// MeterProvider to get catalog load latency in millisecond buckets.
func Views(pkg string) []sdkmetric.View {
	return []sdkmetric.View{
		func(inst sdkmetric.Instrument) (sdkmetric.Stream, bool) {
			if inst.Kind == sdkmetric.InstrumentKindHistogram && inst.Name == pkg+"/latency" {
				return sdkmetric.Stream{
					Name:        inst.Name,
					Description: "Distribution of method latency, by package and method.",
					Aggregation: sdkmetric.AggregationExplicitBucketHistogram{
						Boundaries: defaultMillisecondsBoundaries,
					},
					AttributeFilter: func(kv attribute.KeyValue) bool {
						return kv.Key == AttrPackageKey || kv.Key == AttrMethodKey || kv.Key == AttrStatusKey
					},
				}, true
			}
			return sdkmetric.Stream{}, false
		},
	}
}

// Meter returns the meter for pkg from provider, or from the global provider
// when provider is nil.
func Meter(provider metric.MeterProvider, pkg string) metric.Meter {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	return provider.Meter(pkg, metric.WithInstrumentationAttributes(AttrPackageKey.String(pkg)))
}

// LatencyMeasure returns the histogram recording method latency for pkg.
func LatencyMeasure(provider metric.MeterProvider, pkg string) metric.Float64Histogram {
	pkgMeter := Meter(provider, pkg)

	m, err := pkgMeter.Float64Histogram(
		pkg+"/latency",
		metric.WithDescription("Latency distribution of method calls"),
		metric.WithUnit(unitMilliseconds),
	)
	if err != nil {
		// Only invalid instrument names fail here.
		panic(fmt.Sprintf("fullName=%q: %v", pkg, err))
	}

	return m
}

// DimensionlessMeasure creates a counter for dimensionless measurements.
func DimensionlessMeasure(
	provider metric.MeterProvider,
	pkg string,
	meterName string,
	description string,
) metric.Int64Counter {
	pkgMeter := Meter(provider, pkg)

	m, err := pkgMeter.Int64Counter(
		pkg+meterName,
		metric.WithDescription(description),
		metric.WithUnit(unitDimensionless),
	)
	if err != nil {
		panic(fmt.Sprintf("fullName=%q: %v", pkg+meterName, err))
	}
	return m
}
