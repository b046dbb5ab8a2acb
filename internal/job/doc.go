// Package job decodes YAML jobs files into pipeline jobs.
//
//	jobs:
//	  - id: sensor-a
//	    shape: [2, 3, 4, 5]
//	    fill: random
//	    seed: 7
//	    weights: [0.2, 0.8, 0.5, 1.2]
//	    tau: 0.6
//	    graph:
//	      adjacency:    [[1, 1, 1], [1, 1, 1], [1, 1, 1]]
//	      edge_weights: [[0, 0, 0], [0, 0, 0], [0, 0, 0]]
//	      clusters: [0, 0, 1]
//	      tau: 0.5
//
// Tensors are given either as flat row-major data or generated with a fill.
package job
