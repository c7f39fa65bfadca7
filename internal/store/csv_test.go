package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merchkit/recsys/pkg/models"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProductsCSV(t *testing.T) {
	t.Run("reads catalog rows by header name", func(t *testing.T) {
		path := writeTempCSV(t, "products.csv",
			"product_id,name,category,brand,price,rating,num_reviews,extra\n"+
				"1,Wireless Mouse,Electronics,TechPro,29.99,4.2,120,ignored\n"+
				"2,Denim Jacket,Fashion,StyleHub,89.50,3.8,40,ignored\n")

		products, err := LoadProductsCSV(path)
		require.NoError(t, err)
		require.Len(t, products, 2)

		assert.Equal(t, models.Product{
			ID: 1, Name: "Wireless Mouse", Category: "Electronics",
			Brand: "TechPro", Price: 29.99, Rating: 4.2, ReviewCount: 120,
		}, products[0])
		assert.Equal(t, int64(2), products[1].ID)
	})

	t.Run("column order does not matter", func(t *testing.T) {
		path := writeTempCSV(t, "products.csv",
			"price,product_id,rating,brand,category,name\n"+
				"10.5,7,4.0,Acme,Home,Lamp\n")

		products, err := LoadProductsCSV(path)
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, int64(7), products[0].ID)
		assert.Equal(t, 10.5, products[0].Price)
	})

	t.Run("bad numeric field is an error", func(t *testing.T) {
		path := writeTempCSV(t, "products.csv",
			"product_id,name,category,brand,price,rating\n"+
				"1,Lamp,Home,Acme,notaprice,4.0\n")

		_, err := LoadProductsCSV(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad price")
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadProductsCSV(filepath.Join(t.TempDir(), "absent.csv"))
		require.Error(t, err)
	})
}

func TestLoadInteractionsCSV(t *testing.T) {
	t.Run("maps exporter event names onto actions", func(t *testing.T) {
		path := writeTempCSV(t, "interactions.csv",
			"user_id,product_id,event,timestamp\n"+
				"7,1,view,2026-01-02 10:00:00\n"+
				"7,2,addtocart,2026-01-02 11:00:00\n"+
				"7,2,transaction,2026-01-03\n"+
				"8,3,purchase,2026-01-04T09:30:00Z\n")

		interactions, err := LoadInteractionsCSV(path)
		require.NoError(t, err)
		require.Len(t, interactions, 4)

		assert.Equal(t, models.ActionView, interactions[0].Action)
		assert.Equal(t, models.ActionCart, interactions[1].Action)
		assert.Equal(t, models.ActionPurchase, interactions[2].Action)
		assert.Equal(t, models.ActionPurchase, interactions[3].Action)

		assert.Equal(t, time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC), interactions[0].Timestamp)
		assert.Equal(t, time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC), interactions[2].Timestamp)
	})

	t.Run("unknown event name is an error", func(t *testing.T) {
		path := writeTempCSV(t, "interactions.csv",
			"user_id,product_id,event,timestamp\n"+
				"7,1,wishlist,2026-01-02\n")

		_, err := LoadInteractionsCSV(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown event")
	})

	t.Run("unparseable timestamp is an error", func(t *testing.T) {
		path := writeTempCSV(t, "interactions.csv",
			"user_id,product_id,event,timestamp\n"+
				"7,1,view,yesterday\n")

		_, err := LoadInteractionsCSV(path)
		require.Error(t, err)
	})
}

func TestLoadUsersCSV(t *testing.T) {
	path := writeTempCSV(t, "users.csv",
		"user_id,signup_channel\n101,web\n102,mobile\n")

	users, err := LoadUsersCSV(path)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(101), users[0].ID)
	assert.Equal(t, int64(102), users[1].ID)
}
