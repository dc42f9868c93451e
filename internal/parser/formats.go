package parser

import "github.com/sentrywatch/siemcore/internal/model"

// builtinFormats are registered on every new Registry. Vendor JSON formats
// are distinguished from one another, and from the generic fallback, by a
// literal substring the vendor always emits at the top level — RE2 (used
// by regexp) has no lookahead, so detection leans on substrings rather than
// key-order-independent structural matching.
var builtinFormats = []model.LogFormatSpec{
	{
		Name:  "syslog",
		Regex: `^(?P<timestamp>\w{3}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})\s+(?P<host>[\w\-]+)\s+(?P<program>[\w\-\[\]]+):\s+(?P<message>.*)$`,
		Fields: map[string]model.FieldType{
			"timestamp": model.FieldDatetime,
			"host":      model.FieldString,
			"program":   model.FieldString,
			"message":   model.FieldString,
		},
		Sample: "Feb  5 12:23:09 myhost program[123]: Sample log message",
	},
	{
		Name:  "combined_log",
		Regex: `^(?P<remote_host>[\w\-.:]+)\s+(?P<ident>\S+)\s+(?P<user>\S+)\s+\[(?P<timestamp>[^\]]+)\]\s+"(?P<request>[^"]*?)"\s+(?P<status>\d+)\s+(?P<bytes>\d+)\s+"(?P<referrer>[^"]*?)"\s+"(?P<user_agent>[^"]*?)"$`,
		Fields: map[string]model.FieldType{
			"remote_host": model.FieldString,
			"ident":       model.FieldString,
			"user":        model.FieldString,
			"timestamp":   model.FieldDatetime,
			"request":     model.FieldString,
			"status":      model.FieldInteger,
			"bytes":       model.FieldInteger,
			"referrer":    model.FieldString,
			"user_agent":  model.FieldString,
		},
		Sample: `127.0.0.1 - frank [10/Oct/2000:13:55:36 -0700] "GET /apache_pb.gif HTTP/1.0" 200 2326 "http://www.example.com/start.html" "Mozilla/4.08"`,
	},
	{
		Name:  "palo_alto_traffic",
		Regex: `^TRAFFIC,(?P<timestamp>[^,]+),(?P<serial>[^,]+),(?P<type>[^,]+),(?P<subtype>[^,]+),(?P<src_ip>[^,]+),(?P<dst_ip>[^,]+),(?P<src_port>[^,]+),(?P<dst_port>[^,]+),(?P<protocol>[^,]+)`,
		Fields: map[string]model.FieldType{
			"timestamp": model.FieldDatetime,
			"serial":    model.FieldString,
			"type":      model.FieldString,
			"subtype":   model.FieldString,
			"src_ip":    model.FieldString,
			"dst_ip":    model.FieldString,
			"src_port":  model.FieldInteger,
			"dst_port":  model.FieldInteger,
			"protocol":  model.FieldString,
		},
		Sample: "TRAFFIC,2024/02/05 12:23:09,001122334455,TRAFFIC,end,10.0.0.1,10.0.0.2,51234,443,tcp",
	},
	{
		Name:   "suricata_eve",
		Regex:  `^(?P<json>\{.*"event_type"\s*:\s*"(?:alert|flow|dns|http|tls)".*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"timestamp":"2024-02-05T12:23:09.000000+0000","event_type":"alert","src_ip":"10.0.0.1"}`,
	},
	{
		Name:   "crowdstrike_endpoint",
		Regex:  `^(?P<json>\{.*"event_simpleName"\s*:.*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"event_simpleName":"ProcessRollup2","ComputerName":"host01"}`,
	},
	{
		Name:   "aws_cloudtrail",
		Regex:  `^(?P<json>\{.*"eventSource"\s*:.*"eventName"\s*:.*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"eventVersion":"1.08","eventSource":"s3.amazonaws.com","eventName":"GetObject"}`,
	},
	{
		Name:   "azure_activity_log",
		Regex:  `^(?P<json>\{.*"operationName"\s*:.*"category"\s*:.*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"operationName":"Microsoft.Compute/virtualMachines/write","category":"Administrative"}`,
	},
	{
		Name:   "gcp_audit_log",
		Regex:  `^(?P<json>\{.*"protoPayload"\s*:.*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"protoPayload":{"methodName":"SetIamPolicy"},"severity":"NOTICE"}`,
	},
	{
		Name:   "generic_firewall",
		Regex:  `^type=(?P<type>\S+)\s+.*?src=(?P<src_ip>\S+)\s+dst=(?P<dst_ip>\S+)\s+src_port=(?P<src_port>\S+)\s+dst_port=(?P<dst_port>\S+)`,
		Fields: map[string]model.FieldType{
			"type":     model.FieldString,
			"src_ip":   model.FieldString,
			"dst_ip":   model.FieldString,
			"src_port": model.FieldInteger,
			"dst_port": model.FieldInteger,
		},
		Sample: "type=traffic level=notice src=10.0.0.1 dst=10.0.0.2 src_port=51234 dst_port=443",
	},
	{
		Name:   "generic_json",
		Regex:  `^(?P<json>\{.*\})\s*$`,
		Fields: map[string]model.FieldType{"json": model.FieldJSON},
		Sample: `{"timestamp":"2024-02-05T12:23:09Z","level":"info","message":"sample"}`,
	},
}
