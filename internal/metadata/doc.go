// Package metadata persists pipeline metadata in Redis under the
// miladyos: prefix.
//
// Keyspace:
//
//	miladyos:templates                          zset  template names by update time
//	miladyos:template:<name>                    hash  template record
//	miladyos:template_deployments:<name>        set   deployment ids per template
//	miladyos:deployment:<id>                    hash  deployment record
//	miladyos:job_index:<server>:<job>           str   job -> deployment id lookup
//	miladyos:executions                         zset  execution ids by start time
//	miladyos:execution:<id>                     hash  execution record
//	miladyos:template_executions:<name>         zset  execution ids per template
//	miladyos:job_executions:<server>:<job>      zset  execution ids per job
//	miladyos:status:<status>                    set   execution ids per status
//	miladyos:console:<id>                       str   console output blob
//
// Hash fields are strings; execution parameters are a JSON document in
// a single field. Console blobs are additionally spilled to
// <metadata_dir>/console_<id>.txt so they survive a store restart.
package metadata
