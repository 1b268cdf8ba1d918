// Package influxdb records device level history in InfluxDB 2.x.
//
// Every zone, shade and button change becomes one point in the
// device_level measurement:
//
//	device_level,id=2707,kind=zone,name=... percent=100,value=65535i
//
// The integration is optional and off by default. It observes state only;
// nothing is read back at startup.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	unsubscribe := eng.Subscribe(client.WriteChange)
//	defer unsubscribe()
package influxdb
