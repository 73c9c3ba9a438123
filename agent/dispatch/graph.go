package dispatch

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/Khinkawu/crms6it-sub002/agent/contract"
)

const (
	nodeExtract  = "extract"
	nodeRespond  = "respond"
	nodeValidate = "validate"
	nodeClarify  = "clarify"
	nodeExecute  = "execute"
	nodeFinalize = "finalize"
)

func (d *Dispatcher) compileTurnGraph(ctx context.Context) (compose.Runnable[turnInput, contractx.OutboundReply], error) {
	graph := compose.NewGraph[turnInput, contractx.OutboundReply]()

	if err := graph.AddLambdaNode(nodeExtract,
		compose.InvokableLambda(d.runExtract),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExtract, err)
	}

	if err := graph.AddLambdaNode(nodeRespond,
		compose.InvokableLambda(d.runRespond),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeRespond, err)
	}

	if err := graph.AddLambdaNode(nodeValidate,
		compose.InvokableLambda(d.runValidate),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidate, err)
	}

	if err := graph.AddLambdaNode(nodeClarify,
		compose.InvokableLambda(d.runClarify),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeClarify, err)
	}

	if err := graph.AddLambdaNode(nodeExecute,
		compose.InvokableLambda(d.runExecute),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeExecute, err)
	}

	if err := graph.AddLambdaNode(nodeFinalize,
		compose.InvokableLambda(d.runFinalize),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalize, err)
	}

	if err := graph.AddEdge(compose.START, nodeExtract); err != nil {
		return nil, fmt.Errorf("add edge start->%s: %w", nodeExtract, err)
	}

	extractBranch := compose.NewGraphBranch(routeAfterExtract, map[string]bool{
		nodeRespond:  true,
		nodeValidate: true,
	})
	if err := graph.AddBranch(nodeExtract, extractBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeExtract, err)
	}

	validateBranch := compose.NewGraphBranch(routeAfterValidate, map[string]bool{
		nodeClarify: true,
		nodeExecute: true,
	})
	if err := graph.AddBranch(nodeValidate, validateBranch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeValidate, err)
	}

	for _, from := range []string{nodeRespond, nodeClarify, nodeExecute} {
		if err := graph.AddEdge(from, nodeFinalize); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", from, nodeFinalize, err)
		}
	}
	if err := graph.AddEdge(nodeFinalize, compose.END); err != nil {
		return nil, fmt.Errorf("add edge %s->end: %w", nodeFinalize, err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("dispatch.turn_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
