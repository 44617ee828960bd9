package elasticsearch

// facetDataMapping is shared by the master and the variant level.
const facetDataMapping = `
      "searchData":      { "type": "object", "dynamic": true },
      "resultData":      { "type": "object", "enabled": false },
      "sortData":        { "type": "object", "dynamic": true },
      "scores":          { "type": "object", "dynamic": true },
      "termFacetData":   { "type": "nested", "properties": {
        "name":  { "type": "keyword" },
        "value": { "type": "keyword" }
      } },
      "numberFacetData": { "type": "nested", "properties": {
        "name":  { "type": "keyword" },
        "value": { "type": "double" }
      } },
      "pathFacetData":   { "type": "nested", "properties": {
        "name":  { "type": "keyword" },
        "value": { "type": "keyword" },
        "id":    { "type": "keyword" }
      } }`

// indexMapping is the mapping of every product index, including a folding
// analyzer for German and other Latin-script catalogs.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "ocs_text": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding", "german_normalization"]
        }
      }
    }
  },
  "mappings": {
    "dynamic_templates": [
      { "search_text": {
        "path_match": "*searchData.*",
        "mapping": { "type": "text", "analyzer": "ocs_text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } }
      } },
      { "sort_strings": {
        "path_match": "*sortData.*",
        "match_mapping_type": "string",
        "mapping": { "type": "keyword", "normalizer": "lowercase" }
      } },
      { "scores": {
        "path_match": "*scores.*",
        "mapping": { "type": "double" }
      } }
    ],
    "properties": {
      "id": { "type": "keyword" },` + facetDataMapping + `,
      "variants": { "type": "nested", "properties": {
        "id": { "type": "keyword" },` + facetDataMapping + `
      } }
    }
  }
}`
