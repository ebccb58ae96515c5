// Package influxdb records dispatch telemetry in InfluxDB.
//
// It wraps influxdb-client-go v2 with a batched, non-blocking write API.
// DispatchRecorder is a dispatch.Observer that turns every Send into a
// "dispatch" point:
//
//	dispatch,device_id=dev-000001,device_type=switch,kind=switch_on,outcome=ok duration_ms=500.2,success=true
//
// Write errors surface asynchronously through SetOnError; they never
// reach the dispatcher.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	svc.AddObserver(influxdb.NewDispatchRecorder(client))
package influxdb
