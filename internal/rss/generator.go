// Package rss は公開フィードのRSS 2.0 XMLを生成する。
package rss

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/hitoshi/miniblog/internal/model"
)

// FeedConfig はフィードのメタ情報。
type FeedConfig struct {
	Title       string
	Description string
	BaseURL     string // 末尾スラッシュなし
}

// rssDoc はRSS 2.0ドキュメントのルート要素。
type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	GUID        rssGUID       `xml:"guid"`
	Description string        `xml:"description"`
	Author      string        `xml:"author,omitempty"`
	Categories  []string      `xml:"category"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
	PubDate     string        `xml:"pubDate"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int    `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Generator はRSS 2.0フィードを生成する。
type Generator struct {
	config FeedConfig
}

// NewGenerator はGeneratorを生成する。
func NewGenerator(config FeedConfig) *Generator {
	return &Generator{config: config}
}

// Generate は投稿一覧からRSS 2.0 XMLを生成する。
// postsはcreated_at降順で渡される前提で、その順序を保持する。
// 本文は保存時にサニタイズ済みのHTMLをそのまま載せる。
func (g *Generator) Generate(posts []*model.Post) ([]byte, error) {
	items := make([]rssItem, 0, len(posts))
	for _, post := range posts {
		link := fmt.Sprintf("%s/posts/%s", g.config.BaseURL, post.ID)
		items = append(items, rssItem{
			Title:       post.Title,
			Link:        link,
			GUID:        rssGUID{Value: post.ID, IsPermaLink: false},
			Description: post.Body,
			Author:      post.CreatedBy,
			Categories:  post.Tags,
			Enclosure: &rssEnclosure{
				URL:  post.ImageURL,
				Type: "image/*",
			},
			PubDate: post.CreatedAt.Format(time.RFC1123Z),
		})
	}

	doc := rssDoc{
		Version: "2.0",
		Channel: rssChannel{
			Title:       g.config.Title,
			Link:        g.config.BaseURL,
			Description: g.config.Description,
			Items:       items,
		},
	}
	if len(posts) > 0 {
		doc.Channel.LastBuildDate = posts[0].CreatedAt.Format(time.RFC1123Z)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rss feed: %w", err)
	}

	return append([]byte(xml.Header), body...), nil
}
