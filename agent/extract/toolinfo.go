package extract

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

func toolInfos(descs []contractx.ActionDescriptor) []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(descs))
	for _, desc := range descs {
		params := make(map[string]*schema.ParameterInfo, len(desc.Args))
		for _, arg := range desc.Args {
			params[arg.Name] = &schema.ParameterInfo{
				Type:     schemaType(arg.Type),
				Desc:     argDesc(arg),
				Enum:     arg.Enum,
				Required: arg.Required,
			}
		}
		infos = append(infos, &schema.ToolInfo{
			Name:        desc.Name,
			Desc:        desc.Desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos
}

func schemaType(t contractx.ArgType) schema.DataType {
	switch t {
	case contractx.ArgInteger:
		return schema.Integer
	case contractx.ArgNumber:
		return schema.Number
	case contractx.ArgBoolean:
		return schema.Boolean
	default:
		// Dates and times travel as strings.
		return schema.String
	}
}

func argDesc(arg contractx.ArgSpec) string {
	switch arg.Type {
	case contractx.ArgDate:
		return strings.TrimSpace(arg.Desc + " (YYYY-MM-DD, or a relative Thai phrase verbatim)")
	case contractx.ArgTime:
		return strings.TrimSpace(arg.Desc + " (HH:MM 24-hour, or a relative Thai phrase verbatim)")
	default:
		return arg.Desc
	}
}

// renderActionList produces the plain-text action enumeration substituted
// into the extractor system prompt.
func renderActionList(descs []contractx.ActionDescriptor) string {
	var b strings.Builder
	for _, desc := range descs {
		fmt.Fprintf(&b, "- %s: %s\n", desc.Name, desc.Desc)
		for _, arg := range desc.Args {
			req := "optional"
			if arg.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s)", arg.Name, arg.Type, req)
			if len(arg.Enum) > 0 {
				fmt.Fprintf(&b, " one of: %s", strings.Join(arg.Enum, ", "))
			}
			if arg.Desc != "" {
				fmt.Fprintf(&b, ": %s", arg.Desc)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
