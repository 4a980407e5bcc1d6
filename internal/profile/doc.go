// Package profile turns a flat, time-ordered stream of stack samples into the
// structures a flame graph and an annotated code table are drawn from.
//
// The stages run in this order:
//
//	Columns --ColToRows/SamplesFromRows--> []Sample
//	        --Normalize--> []Frame
//	        --BuildTree--> *Tree (one linear stack per tick under a synthetic root)
//	        --Consolidate--> *Tree (runs merged into blocks)
//	        --CollapseDepths--> depthCollapsed annotations
//	        --Flatten/SplitAtBoundaries--> []Block
//
// LineTimes and LabelTimes read the consolidated tree independently.
//
// Trees are arenas addressed by index; every walk uses an explicit work stack
// so pathologically deep profiles cannot overflow the goroutine stack.
package profile
