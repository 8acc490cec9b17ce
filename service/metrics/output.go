// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Output periodically writes the metrics of a registry to a logger. It is
// used by command line tools that do not live long enough to be scraped.
type Output struct {
	log      zerolog.Logger
	gatherer prometheus.Gatherer
	interval time.Duration
	done     chan struct{}
	wg       *sync.WaitGroup
}

// NewOutput creates a new output for the given gatherer.
func NewOutput(log zerolog.Logger, gatherer prometheus.Gatherer, interval time.Duration) *Output {
	o := Output{
		log:      log.With().Str("component", "metrics").Logger(),
		gatherer: gatherer,
		interval: interval,
		done:     make(chan struct{}),
		wg:       &sync.WaitGroup{},
	}
	return &o
}

// Run starts writing the metrics at every interval.
func (o *Output) Run() {
	o.wg.Add(1)
	go o.loop()
}

// Stop stops the periodic output and writes the metrics one last time.
func (o *Output) Stop() {
	close(o.done)
	o.wg.Wait()
}

func (o *Output) loop() {
	defer o.wg.Done()
	ticker := time.NewTicker(o.interval)
Loop:
	for {
		select {
		case <-o.done:
			break Loop
		case <-ticker.C:
			o.Print()
		}
	}
	o.Print()
	ticker.Stop()
}

// Print writes the current value of every counter, gauge and histogram.
func (o *Output) Print() {
	families, err := o.gatherer.Gather()
	if err != nil {
		o.log.Error().Err(err).Msg("could not gather metrics")
		return
	}

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			event := o.log.Info().Str("name", family.GetName())
			for _, label := range metric.GetLabel() {
				event = event.Str(label.GetName(), label.GetValue())
			}
			switch {
			case metric.GetCounter() != nil:
				event = event.Float64("value", metric.GetCounter().GetValue())
			case metric.GetGauge() != nil:
				event = event.Float64("value", metric.GetGauge().GetValue())
			case metric.GetHistogram() != nil:
				histogram := metric.GetHistogram()
				event = event.
					Uint64("count", histogram.GetSampleCount()).
					Float64("sum", histogram.GetSampleSum())
			case metric.GetUntyped() != nil:
				event = event.Float64("value", metric.GetUntyped().GetValue())
			}
			event.Msg("metric")
		}
	}
}
