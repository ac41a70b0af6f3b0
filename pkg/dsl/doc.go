/*
Package dsl builds flow graphs from string IDs instead of pointers.

Nodes are registered under an ID and edges are declared between IDs, in any
order. Build resolves every edge and reports unknown or duplicate IDs at
once, which suits graphs assembled from files or generated code.

	b := dsl.New()
	b.Add("ask", askNode).Go("answer")
	b.Add("answer", answerNode).On("retry", "ask")

	f, err := b.Build("ask", flow.WithMaxSteps(20))
	if err != nil {
		return err
	}
	_, err = f.Run(ctx, flow.NewState())
*/
package dsl
