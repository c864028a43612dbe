package feed

const validSnapshotJSON = `{
  "allMarkerData": [
    {"storeId": "P1", "name": "Acme", "status": "active", "capacity": 10, "lat": -23.5, "lon": -46.6},
    {"storeId": "P2", "name": "Beta", "status": "inactive", "capacity": 5, "lat": -23.6, "lon": -46.7}
  ],
  "deliveryStations": [
    {"storeId": "S1", "name": "Hub", "status": "active", "capacity": 50, "lat": -23.55, "lon": -46.63}
  ]
}`
