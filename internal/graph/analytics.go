package graph

import "github.com/ppiankov/threadscope/internal/model"

// Analyze computes structural metrics over the graph. An empty graph
// yields zeroed counts with nil MainPost/MostRepliedTo; a graph without a
// root node degrades the root-dependent metrics, it is not an error.
func (g *Graph) Analyze() model.GraphMetrics {
	metrics := model.GraphMetrics{
		TotalTweets: len(g.nodes),
		TotalEdges:  len(g.edges),
		AuthorStats: make(map[string]*model.AuthorStats),
	}
	if len(g.nodes) == 0 {
		return metrics
	}

	var rootID string
	for _, id := range g.order {
		node := g.nodes[id]
		if node.Type == string(model.RelationshipRoot) {
			rootID = id
			metrics.MainPost = &model.NodeRef{ID: id, Author: node.Author, Text: node.Text}
			break
		}
	}

	if rootID != "" {
		metrics.ReplyDepth = g.depthFrom(rootID)
	}

	// Highest in-degree, first-encountered wins ties. Start below zero so
	// a lone root with no replies is still reported.
	best := -1
	for _, id := range g.order {
		if d := g.in[id]; d > best {
			best = d
			node := g.nodes[id]
			metrics.MostRepliedTo = &model.MostReplied{
				ID:         id,
				Author:     node.Author,
				Text:       node.Text,
				ReplyCount: d,
			}
		}
	}

	for _, id := range g.order {
		node := g.nodes[id]
		author := node.Author
		if author == "" {
			author = "unknown"
		}
		stats, ok := metrics.AuthorStats[author]
		if !ok {
			stats = &model.AuthorStats{}
			metrics.AuthorStats[author] = stats
		}
		stats.TweetCount++
		stats.ReplyCount += g.out[id]
	}

	return metrics
}

// depthFrom is the maximum shortest-path distance in edge hops from the
// given node to any reachable node. Edges point child to parent, so the
// hop count is taken over the undirected view; otherwise the root, which
// has no outgoing edges, would always measure as depth zero. Unreachable
// nodes are excluded.
func (g *Graph) depthFrom(start string) int {
	adjacent := make(map[string][]string)
	for _, e := range g.edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
		adjacent[e.Target] = append(adjacent[e.Target], e.Source)
	}

	dist := map[string]int{start: 0}
	queue := []string{start}
	maxDist := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adjacent[cur] {
			if _, ok := dist[next]; ok {
				continue
			}
			dist[next] = dist[cur] + 1
			if dist[next] > maxDist {
				maxDist = dist[next]
			}
			queue = append(queue, next)
		}
	}
	return maxDist
}
