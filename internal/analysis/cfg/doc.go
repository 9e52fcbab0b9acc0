// Package cfg builds statement-level control flow graphs of Go function
// bodies.
//
// Every simple statement and every branching statement (if, for, range,
// switch, select) is a node. Two synthetic nodes, Entry and Exit, start
// and end every graph. Edges out of a conditional node carry the outcome
// of its condition, which forward analyses use to prune branches:
//
//	g := cfg.FromFunc(decl)
//	for _, s := range g.Succs(ifStmt) {
//		cond, taken, ok := g.Branch(ifStmt, s)
//		...
//	}
//
// A panic call ends its path. Statements that follow a return, a panic or
// an unconditional jump have no predecessors.
package cfg
