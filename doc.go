// Package agentwire drives an external agent process over a duplex
// newline-delimited JSON stream: an output stream of typed agent
// messages interleaved with a bidirectional control channel for
// permission checks, lifecycle hooks, interrupts, and session
// configuration changes.
//
// # One-shot queries
//
// Ask runs a single prompt and iterates the turn's messages:
//
//	ctx := context.Background()
//	for msg, err := range agentwire.Ask(ctx, "What is 2+2?", &agentwire.Options{
//	    Command: []string{"agent", "--output-format", "stream-json"},
//	}) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    switch m := msg.(type) {
//	    case *agentwire.AssistantMessage:
//	        for _, block := range m.Content {
//	            if text, ok := block.(*agentwire.TextBlock); ok {
//	                fmt.Println(text.Text)
//	            }
//	        }
//	    case *agentwire.ResultMessage:
//	        fmt.Printf("done in %dms\n", m.DurationMs)
//	    }
//	}
//
// # Interactive sessions
//
// NewClient keeps the connection open across turns:
//
//	client := agentwire.NewClient(&agentwire.Options{
//	    Command: []string{"agent", "--output-format", "stream-json"},
//	})
//	defer client.Close()
//
//	if err := client.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Send(ctx, "Hello", ""); err != nil {
//	    log.Fatal(err)
//	}
//	for msg, err := range client.Responses(ctx) {
//	    // process until the turn's ResultMessage
//	}
//
// Hosts observe and veto the agent's tool use by registering a
// permission callback (Options.CanUseTool) and lifecycle hooks
// (Options.Hooks), and can expose in-process tools through
// Options.ToolServers.
package agentwire
