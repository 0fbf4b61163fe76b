// Package factory instantiates pluggable modules (metrics sinks, for now)
// from configuration. A module is a type name plus a map of raw settings;
// each factory decodes the settings into its own struct with Decode.
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c influxConf
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInflux(c)
//	})
package factory
